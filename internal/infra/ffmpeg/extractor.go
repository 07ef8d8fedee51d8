package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/entity"
	"github.com/the-code-crafters-hackathon/worker-service/internal/domain/port"
	"go.uber.org/zap"
)

// Frames are numbered with six digits so lexical order matches extraction
// order for any realistic video length.
const frameNamePattern = "frame_%06d"

type ExtractorConfig struct {
	FFmpegPath  string
	FFprobePath string
	FPS         int
	Format      string
	TempDir     string
	OutputDir   string
}

type Extractor struct {
	cfg    ExtractorConfig
	zipper *ZipCreator
	sink   port.ArchiveSink
	runner commandRunner
	logger *zap.Logger
}

func NewExtractor(cfg ExtractorConfig, sink port.ArchiveSink, logger *zap.Logger) *Extractor {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 1
	}
	if cfg.Format == "" {
		cfg.Format = "png"
	}
	return &Extractor{
		cfg:    cfg,
		zipper: NewZipCreator(),
		sink:   sink,
		runner: execRunner{},
		logger: logger,
	}
}

// ArchiveName is the deterministic archive filename for a run.
func ArchiveName(timestamp string) string {
	return "frames_" + timestamp + ".zip"
}

// Extract samples frames from videoPath into temp/<timestamp>, zips them into
// outputs/frames_<timestamp>.zip and hands the archive to the sink. The temp
// directory is gone when Extract returns, whatever the outcome.
func (e *Extractor) Extract(ctx context.Context, videoPath string, timestamp string) (*entity.ExtractionResult, error) {
	if !entity.SafePathComponent(timestamp) {
		return nil, fmt.Errorf("%w: timestamp %q is not a safe path component", entity.ErrValidation, timestamp)
	}
	log := e.logger.With(zap.String("timestamp", timestamp), zap.String("video_path", videoPath))

	workDir := filepath.Join(e.cfg.TempDir, timestamp)
	// A directory left behind by a crashed attempt may hold stale frames.
	if err := os.RemoveAll(workDir); err != nil {
		return nil, fmt.Errorf("reset workdir: %w", err)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("create workdir: %w", err)
	}
	defer e.removeWorkDir(workDir, log)

	duration, err := e.probeDuration(ctx, videoPath)
	if err != nil {
		log.Warn("could not get video duration", zap.Error(err))
	}

	framePattern := filepath.Join(workDir, frameNamePattern+"."+e.cfg.Format)
	res, err := e.runner.Run(ctx, e.cfg.FFmpegPath,
		"-i", videoPath,
		"-vf", fmt.Sprintf("fps=%d", e.cfg.FPS),
		"-y",
		framePattern,
	)
	if err != nil || res.ExitCode != 0 {
		diag := strings.TrimSpace(res.Stderr)
		if diag == "" && err != nil {
			diag = err.Error()
		}
		log.Error("ffmpeg failed", zap.Int("exit_code", res.ExitCode), zap.String("stderr", diag))
		return nil, fmt.Errorf("%w: exit code %d: %s", entity.ErrExtractionTool, res.ExitCode, diag)
	}

	frames, err := filepath.Glob(filepath.Join(workDir, "*."+e.cfg.Format))
	if err != nil {
		return nil, fmt.Errorf("glob frames: %w", err)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("%w: %s", entity.ErrEmptyOutput, videoPath)
	}
	sort.Strings(frames)

	if err := os.MkdirAll(e.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create output dir: %v", entity.ErrArchive, err)
	}
	archivePath := filepath.Join(e.cfg.OutputDir, ArchiveName(timestamp))
	if err := e.zipper.CreateZip(ctx, frames, archivePath); err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrArchive, err)
	}
	if info, err := os.Stat(archivePath); err != nil || info.Size() == 0 {
		return nil, fmt.Errorf("%w: archive %s missing or empty", entity.ErrArchive, archivePath)
	}

	names := make([]string, len(frames))
	for i, f := range frames {
		names[i] = filepath.Base(f)
	}
	e.removeWorkDir(workDir, log)

	location, err := e.sink.Store(ctx, archivePath)
	if err != nil {
		return nil, err
	}

	log.Info("frames extracted",
		zap.Int("count", len(frames)),
		zap.Float64("video_duration", duration),
		zap.String("archive", location),
	)

	return &entity.ExtractionResult{
		ArchiveLocation: location,
		FrameCount:      len(frames),
		FrameNames:      names,
		VideoDuration:   duration,
	}, nil
}

func (e *Extractor) removeWorkDir(dir string, log *zap.Logger) {
	if err := os.RemoveAll(dir); err != nil {
		log.Warn("failed to remove workdir", zap.String("dir", dir), zap.Error(err))
	}
}

func (e *Extractor) probeDuration(ctx context.Context, videoPath string) (float64, error) {
	res, err := e.runner.Run(ctx, e.cfg.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(res.Stdout), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}
