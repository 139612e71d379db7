package realtime

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingEncoder struct{}

func (failingEncoder) Encode([]byte) (AudioFrame, error) {
	return AudioFrame{}, errors.New("encoder broken")
}

func TestRecorder_ForwardsFramesInOrder(t *testing.T) {
	// Arrange
	stream := newFakeStream(&eventLog{})
	track := &fakeTrack{}
	r := NewRecorder(stream, NewOpusFramer(0), track)

	// Act
	r.Start()
	stream.frames <- []byte("1")
	stream.frames <- []byte{}
	stream.frames <- []byte("2")

	// Assert: пустой фрагмент пропускается
	require.Eventually(t, func() bool { return r.FramesSent() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, [][]byte{[]byte("1"), []byte("2")}, track.written())
	r.Stop()
	r.Stop()
}

func TestRecorder_EncoderErrorsSkipFrames(t *testing.T) {
	stream := newFakeStream(&eventLog{})
	track := &fakeTrack{}
	r := NewRecorder(stream, failingEncoder{}, track)
	r.Start()

	stream.frames <- []byte("1")
	stream.StopTracks()
	r.Stop()

	assert.Empty(t, track.written())
	assert.Equal(t, int64(0), r.FramesSent())
}

func TestRecorder_StopWithoutStart(t *testing.T) {
	r := NewRecorder(newFakeStream(&eventLog{}), NewOpusFramer(0), &fakeTrack{})

	r.Stop()
	r.Start()

	assert.Equal(t, int64(0), r.FramesSent())
}

func TestOpusFramer_Encode(t *testing.T) {
	framer := NewOpusFramer(0)
	raw := []byte{1, 2, 3}

	frame, err := framer.Encode(raw)
	require.NoError(t, err)
	raw[0] = 9

	assert.Equal(t, []byte{1, 2, 3}, frame.Data, "кадр не должен разделять память с входом")
	assert.Equal(t, 20*time.Millisecond, frame.Duration)

	_, err = framer.Encode(nil)
	assert.Error(t, err)
	assert.Equal(t, 10*time.Millisecond, NewOpusFramer(10*time.Millisecond).FrameDuration)
}
