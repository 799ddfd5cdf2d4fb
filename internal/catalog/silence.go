package catalog

import (
	"bytes"
	"encoding/binary"
	"sync"

	"github.com/remowork/soundswap/internal/domain"
)

const (
	silenceSampleRate = 8000
	silenceSamples    = 800 // 100ms
)

var silenceURI = sync.OnceValue(func() string {
	return domain.EncodeDataURI("audio/wav", silentWAV())
})

// SilencePayload returns the payload reference used for silence presets:
// a 100ms mono 8-bit PCM WAV, inline as a data URI.
func SilencePayload() string {
	return silenceURI()
}

func silentWAV() []byte {
	var buf bytes.Buffer
	dataLen := uint32(silenceSamples)

	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, 36+dataLen)
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&buf, binary.LittleEndian, uint32(silenceSampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(silenceSampleRate)) // byte rate
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))                 // block align
	_ = binary.Write(&buf, binary.LittleEndian, uint16(8))                 // bits per sample

	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, dataLen)
	// Unsigned 8-bit PCM is silent at the midpoint.
	buf.Write(bytes.Repeat([]byte{0x80}, silenceSamples))

	return buf.Bytes()
}
