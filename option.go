package connmgr

import (
	"fmt"
	"os"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Option allows for the connection manager behavior/configuration to be
// customized.
type Option func(o *options)

type options struct {
	config       *Config
	environ      map[string]string
	dotEnvFiles  []string
	logger       *zap.Logger
	listeners    []Listener
	policy       Policy
	newClient    func(opts *redis.Options) *redis.Client
	shutdownHook bool
	signals      []os.Signal
	signalCh     <-chan os.Signal
}

func newOptions(opts []Option) *options {
	o := &options{
		policy:       DefaultPolicy(),
		newClient:    redis.NewClient,
		shutdownHook: true,
		signals:      []os.Signal{syscall.SIGTERM},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// loadConfig resolves the Config from, in order of precedence, WithConfig,
// WithEnvironment, or the process environment after loading WithDotEnv files.
func (o *options) loadConfig() (Config, error) {
	if o.config != nil {
		return *o.config, nil
	}
	if len(o.dotEnvFiles) > 0 {
		if err := LoadDotEnv(o.dotEnvFiles...); err != nil {
			return Config{}, err
		}
	}
	if o.environ != nil {
		return ConfigFromMap(o.environ)
	}
	return ConfigFromEnv()
}

// WithConfig uses cfg as is instead of reading the environment.
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = &cfg
	}
}

// WithEnvironment reads the configuration from vars instead of the process
// environment.
func WithEnvironment(vars map[string]string) Option {
	return func(o *options) {
		o.environ = vars
	}
}

// WithDotEnv loads the given dotenv files into the process environment before
// the configuration is read. Missing files are ignored.
func WithDotEnv(files ...string) Option {
	return func(o *options) {
		o.dotEnvFiles = files
	}
}

// WithLogger sets the logger lifecycle events and warnings are written to. By
// default a zap logger is built from LOG_LEVEL and APP_ENV.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithListener registers an additional Listener for lifecycle events.
func WithListener(l Listener) Option {
	return func(o *options) {
		o.listeners = append(o.listeners, l)
	}
}

// WithPolicy overrides the retry and reconnect Policy.
func WithPolicy(p Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithClientFactory overrides how the go-redis client is constructed from the
// resolved options.
//
// A nil factory is not permitted and will immediately panic.
func WithClientFactory(fn func(opts *redis.Options) *redis.Client) Option {
	if fn == nil {
		panic(fmt.Errorf("nil client factory not permitted, illegal use of api"))
	}
	return func(o *options) {
		o.newClient = fn
	}
}

// WithoutShutdownHook disables closing the connection on termination signals.
// The caller is then responsible for closing the Handle.
func WithoutShutdownHook() Option {
	return func(o *options) {
		o.shutdownHook = false
	}
}

// WithShutdownSignals sets the signals that trigger closing the connection.
// Defaults to SIGTERM.
func WithShutdownSignals(sigs ...os.Signal) Option {
	return func(o *options) {
		o.signals = sigs
	}
}

// WithSignalChannel delivers termination signals from ch instead of
// subscribing to the operating system.
func WithSignalChannel(ch <-chan os.Signal) Option {
	return func(o *options) {
		o.signalCh = ch
	}
}
