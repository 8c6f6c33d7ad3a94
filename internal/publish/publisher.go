package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
	"reelsmith/internal/media/ffprobe"
	"reelsmith/internal/services"
	"reelsmith/internal/store"
)

// Graph is the subset of the Instagram client the publisher drives.
type Graph interface {
	CreateReelContainer(ctx context.Context, videoURL, caption string) (string, error)
	WaitFinished(ctx context.Context, creationID string, attempts int, interval time.Duration) error
	Publish(ctx context.Context, creationID string) (string, error)
}

// Prober reads the caption embedded in a reel.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
}

// Options controls publishing.
type Options struct {
	Dir                   string
	Port                  int
	DownloadStartTimeout  time.Duration
	DownloadFinishTimeout time.Duration
	PollAttempts          int
	PollInterval          time.Duration
}

// OptionsFromConfig reads the instagram section of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Dir:                   cfg.Paths.PublishDir,
		Port:                  cfg.Instagram.ServePort,
		DownloadStartTimeout:  time.Duration(cfg.Instagram.DownloadStartTimeout) * time.Second,
		DownloadFinishTimeout: time.Duration(cfg.Instagram.DownloadFinishTimeout) * time.Second,
		PollAttempts:          cfg.Instagram.StatusPollAttempts,
		PollInterval:          time.Duration(cfg.Instagram.StatusPollInterval) * time.Second,
	}
}

// Result describes one published reel.
type Result struct {
	File    string
	ReelID  string
	MediaID string
}

// Publisher uploads every reel in the publish folder.
type Publisher struct {
	graph  Graph
	prober Prober
	store  *store.Store
	tunnel Tunnel
	opts   Options
	logger *slog.Logger
}

// New constructs a Publisher. st may be nil when no state store is used.
func New(graph Graph, prober Prober, st *store.Store, tunnel Tunnel, opts Options, logger *slog.Logger) *Publisher {
	return &Publisher{
		graph:  graph,
		prober: prober,
		store:  st,
		tunnel: tunnel,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "publish"),
	}
}

// Pending lists the reels in the publish folder, sorted by name.
func Pending(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.mp4"))
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "publish", "list", "invalid publish dir", err)
	}
	sort.Strings(files)
	return files, nil
}

// Run publishes every pending reel. It stops at the first failure since a
// broken tunnel or token affects every later upload too.
func (p *Publisher) Run(ctx context.Context) ([]Result, error) {
	files, err := Pending(p.opts.Dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		p.logger.Info("nothing to publish", logging.String("dir", p.opts.Dir))
		return nil, nil
	}

	server := NewServer(p.opts.Dir, p.logger)
	if err := server.Start(p.opts.Port); err != nil {
		return nil, err
	}
	defer server.Close()

	baseURL, err := p.tunnel.Open(ctx, server.Port())
	if err != nil {
		return nil, err
	}
	defer p.tunnel.Close()
	p.logger.Info("publish tunnel ready", logging.String("url", baseURL))

	results := make([]Result, 0, len(files))
	for _, file := range files {
		result, err := p.publishFile(ctx, server, baseURL, file)
		if err != nil {
			return results, err
		}
		if result.MediaID != "" {
			results = append(results, result)
		}
	}
	return results, nil
}

func (p *Publisher) publishFile(ctx context.Context, server *Server, baseURL, file string) (Result, error) {
	name := filepath.Base(file)
	reelID := strings.ToUpper(strings.TrimSuffix(name, filepath.Ext(name)))
	ctx = services.WithStage(services.WithReelID(ctx, reelID), "publish")
	logger := logging.WithContext(ctx, p.logger)
	result := Result{File: file, ReelID: reelID}

	if p.store != nil {
		story, err := p.store.FindByReelID(ctx, reelID)
		if err != nil {
			return result, services.Wrap(services.ErrIO, "publish", "lookup", "find story", err)
		}
		if story != nil && story.Status == store.StatusPublished {
			logger.Info("reel skipped", logging.Args(logging.DecisionAttrs("publish", "skipped", "already published as "+story.MediaID)...)...)
			return result, nil
		}
	}

	probe, err := p.prober.Inspect(ctx, file)
	if err != nil {
		return result, err
	}
	caption := probe.Description()
	if caption == "" {
		return result, services.Wrap(services.ErrValidation, "publish", "caption", "no description metadata in "+name, nil)
	}

	download := server.Watch(name)
	videoURL := strings.TrimRight(baseURL, "/") + "/" + url.PathEscape(name)
	creationID, err := p.graph.CreateReelContainer(ctx, videoURL, caption)
	if err != nil {
		return result, err
	}
	logger.Info("reel container created", logging.String("creation_id", creationID), logging.String("video_url", videoURL))

	if err := download.WaitStarted(ctx, p.opts.DownloadStartTimeout); err != nil {
		return result, err
	}
	if err := download.WaitFinished(ctx, p.opts.DownloadFinishTimeout); err != nil {
		return result, err
	}
	if err := p.graph.WaitFinished(ctx, creationID, p.opts.PollAttempts, p.opts.PollInterval); err != nil {
		return result, err
	}
	mediaID, err := p.graph.Publish(ctx, creationID)
	if err != nil {
		return result, err
	}
	result.MediaID = mediaID
	logger.Info("reel published", logging.String("media_id", mediaID), logging.Int64("bytes_served", download.BytesWritten()))

	if p.store != nil {
		if err := p.store.MarkPublished(ctx, reelID, mediaID); err != nil {
			if !errors.Is(err, store.ErrStoryNotFound) {
				return result, fmt.Errorf("mark published: %w", err)
			}
			logging.WarnWithContext(logger, "published reel has no story record", "publish_untracked",
				logging.String(logging.FieldErrorHint, "reel was rendered outside this state database"))
		}
	}
	return result, nil
}
