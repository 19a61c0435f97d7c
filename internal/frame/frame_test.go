package frame

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsEndOfStream(t *testing.T) {
	require.False(t, IsEndOfStream(nil))
	require.True(t, IsEndOfStream(ErrEndOfStream))
	require.True(t, IsEndOfStream(fmt.Errorf("read device: %w", errors.New("no such device"))))
	require.False(t, IsEndOfStream(ErrTransient))
	require.False(t, IsEndOfStream(fmt.Errorf("decode mjpeg: %w", ErrTransient)))
}

func TestDetectorFuncDelegates(t *testing.T) {
	d := DetectorFunc(func(img Image) []Detection {
		return []Detection{{Payload: fmt.Sprint(img.Seq), Kind: "TEST"}}
	})
	require.Equal(t, []Detection{{Payload: "7", Kind: "TEST"}}, d.Detect(Image{Seq: 7}))
}
