package raffle

import (
	"context"
	"path/filepath"
	"slices"

	"github.com/fsnotify/fsnotify"
	"github.com/go-redis/redis/v8"
)

var (
	_ ChangeSource = (*FileChangeSource)(nil)
	_ ChangeSource = (*RedisChangeSource)(nil)
)

// FileChangeSource emits the roster file's contents whenever it is written.
// Unparseable versions are logged and skipped.
type FileChangeSource struct {
	path   string
	logger Logger
}

// NewFileChangeSource creates a source for a .json, .yaml or .yml roster file
func NewFileChangeSource(path string, logger Logger) *FileChangeSource {
	if logger == nil {
		logger = &DefaultLogger{}
	}
	return &FileChangeSource{path: filepath.Clean(path), logger: logger}
}

// Changes starts watching. The directory is watched rather than the file so that
// editors replacing the file by rename are still observed.
func (s *FileChangeSource) Changes(ctx context.Context) (<-chan RaffleConfig, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ErrSystemError.WithDetails("failed to create file watcher").WithCause(err)
	}
	if err := watcher.Add(filepath.Dir(s.path)); err != nil {
		watcher.Close()
		return nil, ErrConfigInvalid.WithDetails("failed to watch " + s.path).WithCause(err)
	}

	s.logger.Info("Watching roster file: %s", s.path)

	out := make(chan RaffleConfig)
	go func() {
		defer close(out)
		defer watcher.Close()

		var last *RaffleConfig
		for {
			select {
			case <-ctx.Done():
				return

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("Roster file watcher error: %v", err)

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != s.path || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
					continue
				}

				cfg, err := LoadRaffleConfigFile(s.path)
				if err != nil {
					s.logger.Error("Ignoring unreadable roster file change: %v", err)
					continue
				}
				// 编辑器一次保存可能触发多个事件
				if last != nil && sameRaffleConfig(last, cfg) {
					continue
				}
				last = cfg

				select {
				case out <- *cfg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// RedisChangeSource emits configurations published on a Redis channel
type RedisChangeSource struct {
	redisClient *redis.Client
	channel     string
	logger      Logger
}

// NewRedisChangeSource creates a source subscribed to channel
func NewRedisChangeSource(redisClient *redis.Client, channel string, logger Logger) *RedisChangeSource {
	if channel == "" {
		channel = DefaultChangeChannel
	}
	if logger == nil {
		logger = &DefaultLogger{}
	}
	return &RedisChangeSource{redisClient: redisClient, channel: channel, logger: logger}
}

// Changes subscribes and waits for the subscription to be confirmed
func (s *RedisChangeSource) Changes(ctx context.Context) (<-chan RaffleConfig, error) {
	pubsub := s.redisClient.Subscribe(ctx, s.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, NewStorageError("subscribe", err)
	}

	s.logger.Info("Subscribed to config change channel: %s", s.channel)

	out := make(chan RaffleConfig)
	go func() {
		defer close(out)
		defer pubsub.Close()

		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				cfg, ok := s.decode(msg.Payload)
				if !ok {
					continue
				}
				select {
				case out <- *cfg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *RedisChangeSource) decode(payload string) (*RaffleConfig, bool) {
	cfg, err := ParseRaffleConfig([]byte(payload))
	if err != nil {
		s.logger.Error("Ignoring malformed config change on %s: %v", s.channel, err)
		return nil, false
	}
	return cfg, true
}

func sameRaffleConfig(a, b *RaffleConfig) bool {
	return slices.Equal(a.People, b.People) && slices.Equal(a.Prizes, b.Prizes)
}
