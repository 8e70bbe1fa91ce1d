package device

import (
	"log/slog"
	"sync"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/frame"
	"github.com/oov/audio/resampler"
)

const resampleQuality = 10

// Middle-man processing device to handle format mismatches
// between the source data format to the sink data format.
//
// e.g. a decoded clip recorded at 16kHz mono, played on a 48kHz stereo
// output device, passes through one of these on its way to the speaker.
//
// This device is both a sink and a source!
type AudioFormatConversionDevice struct {
	// The stream that data *arrives on*
	sourceChannel    <-chan frame.PCMFrame
	sourceProperties audiodevice.DeviceProperties

	// The stream that data *leaves on*
	sinkChannel    chan frame.PCMFrame
	sinkProperties audiodevice.DeviceProperties

	// Applied in order to every frame
	formatConversionFunctions []audioFormatConversionFunction

	shutdownOnce sync.Once
}

// Create a new AudioFormatConversionDevice by defining:
// - the source properties (the properties of the audio being fed into this device)
// - the sink properties (the properties of the audio leaving this device)
//
// This device will only start converting once SetStream is called.
func NewAudioFormatConversionDevice(
	sourceProperties audiodevice.DeviceProperties,
	sinkProperties audiodevice.DeviceProperties,
) *AudioFormatConversionDevice {
	formatConversionFunctions := make([]audioFormatConversionFunction, 0)

	if sourceProperties.NumChannels != sinkProperties.NumChannels {
		slog.Debug(
			"adding channel conversion",
			"from", sourceProperties.NumChannels,
			"to", sinkProperties.NumChannels,
		)
		formatConversionFunctions = append(formatConversionFunctions,
			channelConversion(sourceProperties.NumChannels, sinkProperties.NumChannels))
	}
	if sourceProperties.SampleRate != sinkProperties.SampleRate {
		slog.Debug(
			"adding resampler",
			"from", sourceProperties.SampleRate,
			"to", sinkProperties.SampleRate,
		)
		formatConversionFunctions = append(formatConversionFunctions,
			newResampleFunction(sourceProperties.SampleRate, sinkProperties))
	}

	return &AudioFormatConversionDevice{
		sourceProperties:          sourceProperties,
		sinkProperties:            sinkProperties,
		sinkChannel:               make(chan frame.PCMFrame),
		formatConversionFunctions: formatConversionFunctions,
	}
}

// --------------------------------------------------------------------------------
// AudioSourceDevice Interface

// Get the converted stream of this audio device.
func (d *AudioFormatConversionDevice) GetStream() <-chan frame.PCMFrame {
	return d.sinkChannel
}

func (d *AudioFormatConversionDevice) Close() {
	d.shutdownOnce.Do(func() {
		close(d.sinkChannel)
	})
}

// Properties of the data LEAVING this device.
// See GetSourceDeviceProperties for the data entering it.
func (d *AudioFormatConversionDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	return d.sinkProperties
}

// --------------------------------------------------------------------------------
// AudioSinkDevice Interface

// Set the source channel of this audio device, i.e. where data comes from.
//
// When this stream is closed, the converted stream is closed too.
func (d *AudioFormatConversionDevice) SetStream(sourceChannel <-chan frame.PCMFrame) {
	d.sourceChannel = sourceChannel
	go func() {
		for pcmFrame := range d.sourceChannel {
			d.sinkChannel <- d.Convert(pcmFrame)
		}
		d.Close()
	}()
}

func (d *AudioFormatConversionDevice) GetSourceDeviceProperties() audiodevice.DeviceProperties {
	return d.sourceProperties
}

// Convert applies the conversion synchronously, without going through the streams.
// The returned frame never aliases the argument.
func (d *AudioFormatConversionDevice) Convert(pcmFrame frame.PCMFrame) frame.PCMFrame {
	if len(d.formatConversionFunctions) == 0 {
		return append(frame.PCMFrame(nil), pcmFrame...)
	}
	for _, f := range d.formatConversionFunctions {
		pcmFrame = f(pcmFrame)
	}
	return pcmFrame
}

// --------------------------------------------------------------------------------

// Each call allocates its result, since frames outlive the call on a channel.
type audioFormatConversionFunction func(sourceFrame frame.PCMFrame) frame.PCMFrame

// Mixing down averages all channels. Mixing up copies source channel i%from into channel i.
func channelConversion(from int, to int) audioFormatConversionFunction {
	return func(sourceFrame frame.PCMFrame) frame.PCMFrame {
		numFrames := len(sourceFrame) / from
		out := make(frame.PCMFrame, numFrames*to)
		for i := range numFrames {
			in := sourceFrame[i*from : (i+1)*from]
			if to == 1 {
				var sum float32
				for _, v := range in {
					sum += v
				}
				out[i] = sum / float32(from)
				continue
			}
			for c := range to {
				out[i*to+c] = in[c%from]
			}
		}
		return out
	}
}

func newResampleFunction(sourceSampleRate int, sinkProperties audiodevice.DeviceProperties) audioFormatConversionFunction {
	numChannels := sinkProperties.NumChannels
	r := resampler.New(numChannels, sourceSampleRate, sinkProperties.SampleRate, resampleQuality)
	ratio := float64(sinkProperties.SampleRate) / float64(sourceSampleRate)

	return func(sourceFrame frame.PCMFrame) frame.PCMFrame {
		numFrames := len(sourceFrame) / numChannels

		// Interleaved to planar, resample per channel, then interleave again
		planarOut := make([][]float32, numChannels)
		for c := range numChannels {
			planarIn := make([]float32, numFrames)
			for i := range numFrames {
				planarIn[i] = sourceFrame[i*numChannels+c]
			}
			planarOut[c] = resampleChannel(r, c, planarIn, ratio)
		}

		written := len(planarOut[0])
		for _, p := range planarOut[1:] {
			written = min(written, len(p))
		}
		out := make(frame.PCMFrame, written*numChannels)
		for i := range written {
			for c := range numChannels {
				out[i*numChannels+c] = planarOut[c][i]
			}
		}
		return out
	}
}

func resampleChannel(r *resampler.Resampler, channel int, in []float32, ratio float64) []float32 {
	out := make([]float32, int(float64(len(in))*ratio)+64)
	written := 0
	for len(in) > 0 {
		if written == len(out) {
			out = append(out, make([]float32, len(out))...)
		}
		read, w := r.ProcessFloat32(channel, in, out[written:])
		in = in[read:]
		written += w
		if read == 0 && w == 0 {
			break
		}
	}
	return out[:written]
}
