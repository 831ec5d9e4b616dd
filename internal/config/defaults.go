package config

const (
	defaultConfigPath            = "~/.config/hdrconv/config.toml"
	defaultLogDir                = "~/.local/share/hdrconv/logs"
	defaultUploadDir             = "~/Downloads"
	defaultStateDir              = "~/.local/state/hdrconv"
	defaultEncoder               = "ffmpeg"
	defaultProber                = "ffprobe"
	defaultProbeTimeoutSeconds   = 30
	defaultTerminateGraceSeconds = 5
	defaultServerBind            = "127.0.0.1:8765"
	defaultMaxUploadMiB          = 8192
	defaultMaxActiveJobs         = 1
	defaultNotifyRequestTimeout  = 10
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:    defaultLogDir,
			UploadDir: defaultUploadDir,
			StateDir:  defaultStateDir,
		},
		Tools: Tools{
			Encoder:               defaultEncoder,
			Prober:                defaultProber,
			ProbeTimeoutSeconds:   defaultProbeTimeoutSeconds,
			TerminateGraceSeconds: defaultTerminateGraceSeconds,
		},
		Server: Server{
			Bind:          defaultServerBind,
			MaxUploadMiB:  defaultMaxUploadMiB,
			OpenBrowser:   true,
			MaxActiveJobs: defaultMaxActiveJobs,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Completed:      true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
