package config

const (
	defaultStorageDir         = "~/.local/share/bsie/storage"
	defaultDataDir            = "~/.local/share/bsie/data"
	defaultLogDir             = "~/.local/share/bsie/logs"
	defaultAPIBind            = "127.0.0.1:7319"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultQueuePollInterval  = 2
	defaultErrorRetryInterval = 5
	defaultWatchdogInterval   = 5
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StorageDir: defaultStorageDir,
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			APIBind:    defaultAPIBind,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			WatchdogInterval:   defaultWatchdogInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
