package youtube

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"mediagrab/internal/platform"

	ytdl "github.com/kkdai/youtube/v2"
)

// AudioFormat は音声フォーマット情報
type AudioFormat struct {
	ItagNo        int
	MimeType      string // "audio/mp4", "audio/webm"
	Bitrate       int    // ビットレート (bps)
	ContentLength int64  // ファイルサイズ (bytes)
	IsDefault     bool   // デフォルト音声トラックかどうか
}

// Extension はMIMEタイプから拡張子を返す
func (f *AudioFormat) Extension() string {
	if strings.Contains(f.MimeType, "mp4") {
		return ".m4a"
	}
	if strings.Contains(f.MimeType, "webm") {
		return ".webm"
	}
	return ".audio"
}

// audioFormats は音声のみのフォーマットをビットレート降順で返す
func audioFormats(video *ytdl.Video) []AudioFormat {
	var formats []AudioFormat
	for _, f := range video.Formats {
		if !strings.HasPrefix(f.MimeType, "audio/") {
			continue
		}
		af := AudioFormat{
			ItagNo:        f.ItagNo,
			MimeType:      f.MimeType,
			Bitrate:       f.Bitrate,
			ContentLength: f.ContentLength,
		}
		if f.AudioTrack != nil {
			af.IsDefault = f.AudioTrack.AudioIsDefault
		}
		formats = append(formats, af)
	}

	sort.SliceStable(formats, func(i, j int) bool {
		if formats[i].IsDefault != formats[j].IsDefault {
			return formats[i].IsDefault
		}
		return formats[i].Bitrate > formats[j].Bitrate
	})
	return formats
}

// selectAudioFormat は mp4 コンテナを優先して最適なフォーマットを選択
// mp4 が無い場合は最高ビットレートを返す
func selectAudioFormat(video *ytdl.Video) (*ytdl.Format, *AudioFormat, error) {
	formats := audioFormats(video)
	if len(formats) == 0 {
		return nil, nil, fmt.Errorf("no audio formats available")
	}

	selected := formats[0]
	for _, f := range formats {
		if strings.Contains(f.MimeType, "mp4") {
			selected = f
			break
		}
	}

	for i := range video.Formats {
		if video.Formats[i].ItagNo == selected.ItagNo {
			return &video.Formats[i], &selected, nil
		}
	}
	return nil, nil, fmt.Errorf("format not found: itag=%d", selected.ItagNo)
}

// DownloadAudio は yt-dlp を使わずに音声ストリームを直接保存する
func (c *Client) DownloadAudio(ctx context.Context, videoURL, outputDir string, progress func(current, total int64)) (*platform.Artifact, error) {
	video, err := c.client.GetVideoContext(ctx, videoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get video: %w", err)
	}

	format, selected, err := selectAudioFormat(video)
	if err != nil {
		return nil, err
	}

	stream, size, err := c.client.GetStreamContext(ctx, video, format)
	if err != nil {
		return nil, fmt.Errorf("failed to get stream: %w", err)
	}
	defer stream.Close()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	filename := platform.SafeName(video.Title) + "_" + platform.UniqueSuffix(time.Now()) + selected.Extension()
	outputPath := filepath.Join(outputDir, filename)

	file, err := os.Create(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	_, err = platform.CopyWithProgress(ctx, file, stream, size, progress)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(outputPath) // 失敗時はファイルを削除
		return nil, fmt.Errorf("failed to download: %w", err)
	}

	return &platform.Artifact{
		FilePath: outputPath,
		Filename: filename,
		Title:    video.Title,
		Author:   video.Author,
		Duration: video.Duration,
	}, nil
}
