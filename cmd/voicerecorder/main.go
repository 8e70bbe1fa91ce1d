package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/cmd/application"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/cmd/config"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/audioapi"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/session"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/utils"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/pkg/encoderdecoder"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func settingsFromViper(properties audiodevice.DeviceProperties) application.Settings {
	// avoid polluting the main namespace with the options and config structs

	return application.Settings{
		Properties: properties,
		InputGain:  float32(viper.GetFloat64("inputgain")),
		Encoder:    encoderdecoder.EncoderDecoderTypeEnum(viper.GetString("encoder")),
		Timeslice:  viper.GetDuration("timeslice"),
		BeepFreq:   viper.GetFloat64("beepfrequency"),
		BeepLength: viper.GetDuration("beepduration"),
		Cooldown:   viper.GetDuration("playbackcooldown"),
		CacheSize:  viper.GetInt("waveformcachesize"),
		SessionOpts: session.Options{
			CountdownFrom:      viper.GetInt("countdownfrom"),
			CountdownInterval:  viper.GetDuration("countdowninterval"),
			CountdownPreferred: viper.GetBool("countdownpreferred"),
			WaveformWidth:      viper.GetInt("waveformwidth"),
			WaveformHeight:     viper.GetInt("waveformheight"),
			Prompt:             viper.GetString("prompt"),
		},
	}
}

func main() {
	configFilePath := flag.String("configFilePath", "config.yaml", "Set the file path to the config file.")
	flag.Parse()

	config.LoadConfig(*configFilePath)
	logCloser, err := utils.ConfigureDefaultLogger(
		viper.GetString("loglevel"),
		viper.GetString("logfile"),
		slog.HandlerOptions{},
	)
	if err != nil {
		slog.Error("error while configuring default logger", "err", err)
		panic(err)
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	// --------------------------------------------------------------------------------

	properties := audiodevice.DeviceProperties{
		SampleRate:  viper.GetInt("samplerate"),
		NumChannels: viper.GetInt("numchannels"),
	}
	audioIODeviceAPI, err := audioapi.New(
		viper.GetString("audioapi"),
		properties,
		viper.GetInt("framesperbuffer"),
		viper.GetString("inputfile"),
	)
	if err != nil {
		slog.Error("error while creating audio api", "err", err)
		panic(err)
	}

	app, err := application.NewApp(audioIODeviceAPI, settingsFromViper(properties), slog.Default())
	if err != nil {
		slog.Error("error while creating application", "err", err)
		panic(err)
	}

	// --------------------------------------------------------------------------------

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cli := newCLI(app, os.Stdin, os.Stdout)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.Run(ctx) })
	g.Go(func() error { return cli.watch(ctx) })
	g.Go(func() error { return cli.run(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) && !errors.Is(err, context.Canceled) {
		slog.Error("voice recorder exited with error", "err", err)
		if logCloser != nil {
			logCloser.Close()
		}
		os.Exit(1)
	}
}
