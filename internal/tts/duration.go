package tts

import (
	"math"
	"strings"
)

// EstimateSeconds approximates spoken duration from word count at roughly
// 150 words per minute, with an 8 second floor. Used only when the audio
// itself could not be measured; it must never override a measured duration.
func EstimateSeconds(text string) int {
	words := len(strings.Fields(text))
	seconds := int(math.Round(float64(words) / 2.5))
	if seconds < 8 {
		return 8
	}
	return seconds
}

var mp3BitratesV1 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320}
var mp3BitratesV2 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160}
var mp3SampleRatesV1 = [4]int{44100, 48000, 32000, 0}
var mp3SampleRatesV2 = [4]int{22050, 24000, 16000, 0}
var mp3SampleRatesV25 = [4]int{11025, 12000, 8000, 0}

// MeasureMP3Seconds walks the MPEG audio frames of an mp3 payload and sums
// their sample counts, which is accurate for both CBR and VBR files. It
// reports false when the payload does not contain a plausible frame
// sequence, in which case callers fall back to EstimateSeconds.
func MeasureMP3Seconds(data []byte) (int, bool) {
	offset := 0

	// Skip a leading ID3v2 tag (10 byte header + syncsafe size).
	if len(data) >= 10 && data[0] == 'I' && data[1] == 'D' && data[2] == '3' {
		size := int(data[6]&0x7f)<<21 | int(data[7]&0x7f)<<14 | int(data[8]&0x7f)<<7 | int(data[9]&0x7f)
		offset = 10 + size
	}

	frames := 0
	var seconds float64
	for offset+4 <= len(data) {
		if data[offset] != 0xff || data[offset+1]&0xe0 != 0xe0 {
			// Resync: only tolerate junk before the first frame.
			if frames > 0 {
				break
			}
			offset++
			continue
		}

		versionBits := (data[offset+1] >> 3) & 0x03
		layerBits := (data[offset+1] >> 1) & 0x03
		bitrateIdx := (data[offset+2] >> 4) & 0x0f
		sampleIdx := (data[offset+2] >> 2) & 0x03
		padding := int((data[offset+2] >> 1) & 0x01)

		// Layer III only; bitrate 0 is "free format", 15 is reserved.
		if layerBits != 0x01 || bitrateIdx == 0 || bitrateIdx == 15 || sampleIdx == 3 || versionBits == 1 {
			if frames > 0 {
				break
			}
			offset++
			continue
		}

		var bitrate, sampleRate, samplesPerFrame int
		switch versionBits {
		case 3: // MPEG1
			bitrate = mp3BitratesV1[bitrateIdx] * 1000
			sampleRate = mp3SampleRatesV1[sampleIdx]
			samplesPerFrame = 1152
		case 2: // MPEG2
			bitrate = mp3BitratesV2[bitrateIdx] * 1000
			sampleRate = mp3SampleRatesV2[sampleIdx]
			samplesPerFrame = 576
		default: // MPEG2.5
			bitrate = mp3BitratesV2[bitrateIdx] * 1000
			sampleRate = mp3SampleRatesV25[sampleIdx]
			samplesPerFrame = 576
		}
		if sampleRate == 0 {
			break
		}

		frameLen := samplesPerFrame/8*bitrate/sampleRate + padding
		if frameLen <= 4 {
			break
		}

		seconds += float64(samplesPerFrame) / float64(sampleRate)
		frames++
		offset += frameLen
	}

	if frames == 0 {
		return 0, false
	}
	return int(math.Round(seconds)), true
}
