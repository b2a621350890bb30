package logger

import (
	"io"
	"os"
	"strings"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/apex/log/handlers/json"
	"github.com/apex/log/handlers/text"
)

// Setup ログレベルと出力形式を設定する
// level: debug|info|warn|error（不正な値は info）、format: json|text|cli（既定は text）
func Setup(level, format string) {
	SetupWriter(os.Stderr, level, format)
}

// SetupWriter 出力先を指定して設定する
func SetupWriter(w io.Writer, level, format string) {
	switch strings.ToLower(format) {
	case "json":
		log.SetHandler(json.New(w))
	case "cli":
		log.SetHandler(cli.New(w))
	default:
		log.SetHandler(text.New(w))
	}

	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}
