package main

import (
	"fmt"
	"time"
)

type Config struct {
	BufferSize           int           `env:"BUFFER_SIZE,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	TurnQueueDepth       int           `env:"TURN_QUEUE_DEPTH,required=true"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,required=true"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,required=true"`

	MaxHistoryLength   int           `env:"MAX_HISTORY_LENGTH,required=true"`
	HistoryPromptDepth int           `env:"HISTORY_PROMPT_DEPTH,default=20"`
	CacheTTL           time.Duration `env:"CACHE_TTL,required=true"`

	TypingTimeout       time.Duration `env:"TYPING_TIMEOUT,default=10s"`
	TypingSweepInterval time.Duration `env:"TYPING_SWEEP_INTERVAL,default=5s"`
	StatsInterval       time.Duration `env:"STATS_INTERVAL,default=30s"`

	ProviderURL     string        `env:"PROVIDER_URL,required=true"`
	ProviderAPIKey  string        `env:"PROVIDER_API_KEY"`
	ProviderModel   string        `env:"PROVIDER_MODEL,required=true"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT,default=60s"`

	ModerationWords           string `env:"MODERATION_WORDS"`
	ModerationCharReplacement string `env:"MODERATION_CHARACTER_REPLACEMENT,default=*"`

	AuthSecret        string        `env:"AUTH_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`
	Host           string `env:"HOST,default=localhost"`
	Port           int    `env:"PORT,default=8080"`
}

func characterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"MODERATION_CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}
