package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// maxMessageBytes caps one request or response line.
const maxMessageBytes = 16 << 10

func writeMessage(w io.Writer, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(b, '\n'))
	return err
}

// readLine returns the first newline-terminated message on r without the
// trailing newline.
func readLine(r io.Reader) ([]byte, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 512), maxMessageBytes)
	if scanner.Scan() {
		return scanner.Bytes(), nil
	}
	err := scanner.Err()
	switch {
	case err == nil:
		return nil, io.ErrUnexpectedEOF
	case errors.Is(err, bufio.ErrTooLong):
		return nil, fmt.Errorf("message exceeds %d bytes", maxMessageBytes)
	default:
		return nil, err
	}
}
