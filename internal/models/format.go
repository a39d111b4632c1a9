package models

// Format はダウンロード可能な出力形式
type Format struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Format      string `json:"format"`
	Quality     string `json:"quality"`
	Description string `json:"description"`
	Video       bool   `json:"video"`
}

// Formats はサポートする出力形式の一覧
var Formats = []Format{
	{ID: "mp3_128", Name: "MP3 128kbps", Format: "mp3", Quality: "128k", Description: "Standard quality, smaller file"},
	{ID: "mp3_192", Name: "MP3 192kbps", Format: "mp3", Quality: "192k", Description: "High quality"},
	{ID: "mp3_320", Name: "MP3 320kbps", Format: "mp3", Quality: "320k", Description: "Best MP3 quality"},
	{ID: "flac", Name: "FLAC", Format: "flac", Quality: "best", Description: "Lossless audio"},
	{ID: "wav", Name: "WAV", Format: "wav", Quality: "best", Description: "Uncompressed audio"},
	{ID: "m4a", Name: "M4A (AAC)", Format: "m4a", Quality: "best", Description: "AAC audio"},
	{ID: "mp4", Name: "MP4 Video", Format: "mp4", Quality: "best", Description: "Video with audio", Video: true},
}

// 既定値
const (
	DefaultFormat  = "mp3"
	DefaultQuality = "192k"
)

// IsKnownFormat は形式名 (mp3, flac, ...) が一覧に含まれるかを返す
func IsKnownFormat(format string) bool {
	for _, f := range Formats {
		if f.Format == format {
			return true
		}
	}
	return format == "ogg"
}

// IsVideoFormat は動画形式かどうかを返す
func IsVideoFormat(format string) bool {
	return format == "mp4"
}

// IsKnownQuality は品質指定が有効かを返す
func IsKnownQuality(quality string) bool {
	switch quality {
	case "128k", "192k", "320k", "best":
		return true
	}
	return false
}
