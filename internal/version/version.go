package version

// Version はビルド時に -ldflags で上書きされる
var Version = "1.0.0"
