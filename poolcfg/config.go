// Package poolcfg loads and validates the pool's configuration: a file
// (JSON/YAML/TOML), overlaid with RUSTPOOL_-prefixed environment
// variables, validated at startup. Grounded on
// original_source/src/config/loader.rs and src/structs/mod.rs's Config
// struct.
package poolcfg

const (
	hostMaxSize   = 256
	walletMaxSize = 128

	envPrefix = "RUSTPOOL_"
)

// NodeRole selects which of the Protocol Engine and the backend timers a
// process runs.
type NodeRole string

const (
	NodeRoleWorker   NodeRole = "WORKER"
	NodeRoleBackend  NodeRole = "BACKEND"
	NodeRoleCombined NodeRole = "COMBINED"
)

// LogStyle selects the logging backend's timestamp/field rendering.
type LogStyle string

const (
	LogStyleSystemd LogStyle = "SYSTEMD"
	LogStyleRustpool LogStyle = "RUSTPOOL"
)

// Config is the full set of operator-configurable settings. Field names
// and defaults are restated from original_source/src/structs/mod.rs's
// Config struct.
type Config struct {
	NodeRole NodeRole `json:"node_role" yaml:"node_role" toml:"node_role"`
	Threads  int      `json:"threads" yaml:"threads" toml:"threads"`

	Wallet    string `json:"wallet" yaml:"wallet" toml:"wallet"`
	FeeWallet string `json:"fee_wallet" yaml:"fee_wallet" toml:"fee_wallet"`
	PoolFee   float64 `json:"pool_fee" yaml:"pool_fee" toml:"pool_fee"`

	PoolListenHost string `json:"pool_listen_host" yaml:"pool_listen_host" toml:"pool_listen_host"`
	PoolListenPort uint16 `json:"pool_listen_port" yaml:"pool_listen_port" toml:"pool_listen_port"`

	BlockNotifyHost string `json:"block_notify_host" yaml:"block_notify_host" toml:"block_notify_host"`
	BlockNotifyPort uint16 `json:"block_notify_port" yaml:"block_notify_port" toml:"block_notify_port"`

	DaemonRPCURL      string `json:"daemon_rpc_url" yaml:"daemon_rpc_url" toml:"daemon_rpc_url"`
	DaemonRPCUser     string `json:"daemon_rpc_user" yaml:"daemon_rpc_user" toml:"daemon_rpc_user"`
	DaemonRPCPassword string `json:"daemon_rpc_password" yaml:"daemon_rpc_password" toml:"daemon_rpc_password"`

	WalletRPCURL      string `json:"wallet_rpc_url" yaml:"wallet_rpc_url" toml:"wallet_rpc_url"`
	WalletRPCUser     string `json:"wallet_rpc_user" yaml:"wallet_rpc_user" toml:"wallet_rpc_user"`
	WalletRPCPassword string `json:"wallet_rpc_password" yaml:"wallet_rpc_password" toml:"wallet_rpc_password"`
	RPCTimeoutSeconds int    `json:"rpc_timeout_seconds" yaml:"rpc_timeout_seconds" toml:"rpc_timeout_seconds"`

	DatabaseType                  string `json:"database_type" yaml:"database_type" toml:"database_type"`
	DatabaseHost                  string `json:"database_host" yaml:"database_host" toml:"database_host"`
	DatabasePort                  uint16 `json:"database_port" yaml:"database_port" toml:"database_port"`
	DatabaseName                  string `json:"database_name" yaml:"database_name" toml:"database_name"`
	DatabaseUser                  string `json:"database_user" yaml:"database_user" toml:"database_user"`
	DatabasePassword              string `json:"database_password" yaml:"database_password" toml:"database_password"`
	DatabaseConnectTimeoutSeconds int    `json:"database_connect_timeout_seconds" yaml:"database_connect_timeout_seconds" toml:"database_connect_timeout_seconds"`

	PoolReserveSizeBytes          uint16 `json:"pool_reserve_size_bytes" yaml:"pool_reserve_size_bytes" toml:"pool_reserve_size_bytes"`
	PoolMinDifficulty             uint64 `json:"pool_min_difficulty" yaml:"pool_min_difficulty" toml:"pool_min_difficulty"`
	MinerExpectedSecondsPerShare  uint16 `json:"miner_expected_seconds_per_share" yaml:"miner_expected_seconds_per_share" toml:"miner_expected_seconds_per_share"`
	MaxOpenJobsToBlock            int    `json:"max_open_jobs_to_block" yaml:"max_open_jobs_to_block" toml:"max_open_jobs_to_block"`
	MaxErrorJobsToBlock           int    `json:"max_error_jobs_to_block" yaml:"max_error_jobs_to_block" toml:"max_error_jobs_to_block"`
	AllowSelfSelect               bool   `json:"allow_self_select" yaml:"allow_self_select" toml:"allow_self_select"`
	PollRPCIntervalSeconds        uint16 `json:"poll_rpc_interval_seconds" yaml:"poll_rpc_interval_seconds" toml:"poll_rpc_interval_seconds"`
	PoolStatsWindowSeconds        uint16 `json:"pool_stats_window_seconds" yaml:"pool_stats_window_seconds" toml:"pool_stats_window_seconds"`

	// PoolPayoutRateAtomicUnitsPerDifficulty is supplemented beyond
	// original_source: the PPS rule's per-difficulty credit rate.
	PoolPayoutRateAtomicUnitsPerDifficulty int64 `json:"pool_payout_rate_atomic_units_per_difficulty" yaml:"pool_payout_rate_atomic_units_per_difficulty" toml:"pool_payout_rate_atomic_units_per_difficulty"`

	ShouldProcessPayments                bool   `json:"should_process_payments" yaml:"should_process_payments" toml:"should_process_payments"`
	ShouldDoAutomaticPayments             bool   `json:"should_do_automatic_payments" yaml:"should_do_automatic_payments" toml:"should_do_automatic_payments"`
	ProcessPaymentsTimerSeconds           uint16 `json:"process_payments_timer_seconds" yaml:"process_payments_timer_seconds" toml:"process_payments_timer_seconds"`
	AutoPaymentMinBalanceAtomicUnits      uint64 `json:"auto_payment_min_balance_atomic_units" yaml:"auto_payment_min_balance_atomic_units" toml:"auto_payment_min_balance_atomic_units"`
	ManualPaymentMinBalanceAtomicUnits    uint64 `json:"manual_payment_min_balance_atomic_units" yaml:"manual_payment_min_balance_atomic_units" toml:"manual_payment_min_balance_atomic_units"`

	RXUseFullMemory bool `json:"rx_use_full_memory" yaml:"rx_use_full_memory" toml:"rx_use_full_memory"`
	RXUseLargePages bool `json:"rx_use_large_pages" yaml:"rx_use_large_pages" toml:"rx_use_large_pages"`
	RXSetSecureFlag bool `json:"rx_set_secure_flag" yaml:"rx_set_secure_flag" toml:"rx_set_secure_flag"`

	MetricsListenHost string `json:"metrics_listen_host" yaml:"metrics_listen_host" toml:"metrics_listen_host"`
	MetricsListenPort uint16 `json:"metrics_listen_port" yaml:"metrics_listen_port" toml:"metrics_listen_port"`

	LogLevel string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogStyle LogStyle `json:"log_style" yaml:"log_style" toml:"log_style"`
}

// Default returns a Config with original_source's baseline defaults.
func Default() Config {
	return Config{
		NodeRole:                      NodeRoleCombined,
		Threads:                       0, // 0 means "use runtime.NumCPU()", applied in ApplyRuntimeOverrides
		PoolListenHost:                "0.0.0.0",
		PoolListenPort:                3333,
		BlockNotifyHost:               "127.0.0.1",
		BlockNotifyPort:               3334,
		DatabaseType:                  "POSTGRES",
		DatabasePort:                  5432,
		DatabaseConnectTimeoutSeconds: 10,
		RPCTimeoutSeconds:             30,
		PoolReserveSizeBytes:          16,
		PoolMinDifficulty:             1000,
		MinerExpectedSecondsPerShare:  10,
		MaxOpenJobsToBlock:            50,
		MaxErrorJobsToBlock:           10,
		PollRPCIntervalSeconds:        5,
		PoolStatsWindowSeconds:        600,
		ProcessPaymentsTimerSeconds:   3600,
		MetricsListenHost:             "127.0.0.1",
		MetricsListenPort:             9333,
		LogLevel:                      "info",
		LogStyle:                      LogStyleRustpool,
	}
}
