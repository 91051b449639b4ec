package config

const (
	defaultConfigPath             = "~/.config/moversync/config.toml"
	defaultExclusionsFile         = "/config/mover_exclusions.txt"
	defaultMoverLogDir            = "/mover_logs"
	defaultStateDir               = "~/.local/share/moversync"
	defaultLogDir                 = "~/.local/share/moversync/logs"
	defaultAPIBind                = "127.0.0.1:7488"
	defaultMediaRoot              = "/mnt/chloe/data/media"
	defaultMovieSegment           = "/movies/"
	defaultTVSegment              = "/tv/"
	defaultManagerTimeoutSeconds  = 30
	defaultSonarrRequestsPerSec   = 10
	defaultFullSyncCron           = "0 */6 * * *"
	defaultLogMonitorCron         = "30 23 * * *"
	defaultListPrefix             = "Filtered_files"
	defaultLogPrefix              = "Mover_tuning"
	defaultTrueRunThresholdBytes  = 500
	defaultMoverStatsCacheEntries = 32
	defaultNtfyTimeoutSeconds     = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ExclusionsFile: defaultExclusionsFile,
			MoverLogDir:    defaultMoverLogDir,
			StateDir:       defaultStateDir,
			LogDir:         defaultLogDir,
			APIBind:        defaultAPIBind,
		},
		Rewrite: Rewrite{
			MediaRoot:    defaultMediaRoot,
			MovieSegment: defaultMovieSegment,
			TVSegment:    defaultTVSegment,
			LegacyPrefixes: []PrefixRewrite{
				{Prefix: "/chloe/", Target: defaultMediaRoot + "/"},
			},
		},
		Radarr: Manager{
			TimeoutSeconds: defaultManagerTimeoutSeconds,
		},
		Sonarr: Manager{
			TimeoutSeconds:    defaultManagerTimeoutSeconds,
			RequestsPerSecond: defaultSonarrRequestsPerSec,
		},
		Schedule: Schedule{
			Enabled:        true,
			FullSyncCron:   defaultFullSyncCron,
			LogMonitorCron: defaultLogMonitorCron,
			WatchLogs:      true,
		},
		MoverLogs: MoverLogs{
			ListPrefix:            defaultListPrefix,
			LogPrefix:             defaultLogPrefix,
			TrueRunThresholdBytes: defaultTrueRunThresholdBytes,
			CacheEntries:          defaultMoverStatsCacheEntries,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
			NotifyPartial:         true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
