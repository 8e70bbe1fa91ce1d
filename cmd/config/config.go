package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/audioapi"
	"github.com/Honorable-Knights-of-the-Roundtable/voicerecorder/internal/utils"
	"github.com/spf13/viper"
)

var errInvalidConfig = errors.New("invalid config")

func LoadConfig(configFilePath string) {
	utils.SetViperDefaults()

	viper.SetConfigFile(configFilePath)
	if err := viper.ReadInConfig(); err != nil {
		// SetConfigFile reports a missing file as a plain fs error
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			slog.Info("no config file found", "configFilePath", configFilePath)
		} else {
			slog.Error("error during config read", "err", err)
			panic(err)
		}
	}

	if err := Validate(); err != nil {
		slog.Error("invalid config. See the `config` section of the README.", "err", err)
		panic(err)
	}
}

// Check the loaded values make sense together.
func Validate() error {
	var errs []error
	positive := []string{"samplerate", "numchannels", "framesperbuffer", "waveformwidth", "waveformheight", "waveformcachesize"}
	for _, key := range positive {
		if viper.GetInt(key) <= 0 {
			errs = append(errs, fmt.Errorf("%w: %s must be positive", errInvalidConfig, key))
		}
	}
	if viper.GetInt("countdownfrom") < 0 {
		errs = append(errs, fmt.Errorf("%w: countdownfrom must not be negative", errInvalidConfig))
	}
	if viper.GetDuration("countdowninterval") <= 0 {
		errs = append(errs, fmt.Errorf("%w: countdowninterval must be positive", errInvalidConfig))
	}
	if viper.GetDuration("timeslice") < 0 {
		errs = append(errs, fmt.Errorf("%w: timeslice must not be negative", errInvalidConfig))
	}
	if viper.GetFloat64("inputgain") < 0 {
		errs = append(errs, fmt.Errorf("%w: inputgain must not be negative", errInvalidConfig))
	}
	if viper.GetString("audioapi") == audioapi.APIFile && viper.GetString("inputfile") == "" {
		errs = append(errs, fmt.Errorf("%w: the file audioapi needs an inputfile", errInvalidConfig))
	}
	return errors.Join(errs...)
}
