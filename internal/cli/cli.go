// Package cli parses scancap's command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Command string

const (
	CommandRecord    Command = "record"
	CommandStop      Command = "stop"
	CommandCancel    Command = "cancel"
	CommandStatus    Command = "status"
	CommandScan      Command = "scan"
	CommandScanImage Command = "scan-image"
	CommandOCR       Command = "ocr"
	CommandDevices   Command = "devices"
	CommandDoctor    Command = "doctor"
	CommandVersion   Command = "version"
	CommandHelp      Command = "help"
)

// argRule is the positional-argument contract of one command.
type argRule struct {
	min, max int
	name     string
}

var validCommands = map[Command]argRule{
	CommandRecord:    {},
	CommandStop:      {},
	CommandCancel:    {},
	CommandStatus:    {},
	CommandScan:      {},
	CommandScanImage: {min: 1, max: 1, name: "PATH"},
	CommandOCR:       {min: 1, max: -1, name: "PATH..."},
	CommandDevices:   {},
	CommandDoctor:    {},
	CommandVersion:   {},
	CommandHelp:      {},
}

// aliases maps alternate verbs onto commands. toggle is common in keybindings.
var aliases = map[string]Command{
	"toggle": CommandRecord,
}

type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool
	Args       []string

	// Timeout overrides scan.timeout_ms for scan.
	Timeout time.Duration
	// Languages overrides ocr.languages for ocr.
	Languages []string
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	haveCommand := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			if haveCommand {
				return Parsed{}, fmt.Errorf("--config must precede the command")
			}
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case "--timeout":
			if parsed.Command != CommandScan {
				return Parsed{}, fmt.Errorf("--timeout only applies to %s", CommandScan)
			}
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--timeout requires a duration")
			}
			timeout, err := time.ParseDuration(args[i])
			if err != nil || timeout <= 0 {
				return Parsed{}, fmt.Errorf("invalid --timeout %q: want a positive duration such as 15s", args[i])
			}
			parsed.Timeout = timeout
		case "--lang":
			if parsed.Command != CommandOCR {
				return Parsed{}, fmt.Errorf("--lang only applies to %s", CommandOCR)
			}
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--lang requires a language list such as jpn+eng")
			}
			parsed.Languages = splitLanguages(args[i])
			if len(parsed.Languages) == 0 {
				return Parsed{}, errors.New("--lang requires at least one language")
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			if haveCommand {
				parsed.Args = append(parsed.Args, arg)
				continue
			}

			cmd := Command(arg)
			if alias, ok := aliases[arg]; ok {
				cmd = alias
			}
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			haveCommand = true
			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
		}
	}

	if err := checkArgs(parsed); err != nil {
		return Parsed{}, err
	}
	return parsed, nil
}

func checkArgs(parsed Parsed) error {
	rule := validCommands[parsed.Command]
	n := len(parsed.Args)
	if rule.max == 0 && n > 0 {
		return fmt.Errorf("unexpected arguments after command %q", parsed.Command)
	}
	if n < rule.min {
		return fmt.Errorf("%s requires %s", parsed.Command, rule.name)
	}
	if rule.max > 0 && n > rule.max {
		return fmt.Errorf("unexpected arguments after command %q %s", parsed.Command, rule.name)
	}
	return nil
}

func splitLanguages(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, "+") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [args]

Commands:
  record            Start recording, or stop+save when already recording
  stop              Stop the active recording and save it
  cancel            Cancel the active recording and discard audio
  status            Print current recording state
  scan [--timeout D]
                    Scan the camera until a barcode is found
  scan-image PATH   Scan one still image for a barcode
  ocr [--lang L] PATH...
                    Print text recognized in each image
  devices           List audio input devices
  doctor            Run configuration and environment checks
  version           Print version information
  help              Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/scancap/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
