package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFilename = "uc-donate-bot.log"

var Logger zerolog.Logger

// Init 初始化全局日志，levelStr 无法识别时回退到 info
func Init(levelStr string, toFile bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.DateTime,
	}

	var writer zerolog.LevelWriter
	if toFile {
		fileLogger := &lumberjack.Logger{
			Filename:   logFilename,
			MaxAge:     3,
			MaxBackups: 3,
		}
		writer = zerolog.MultiLevelWriter(consoleWriter, fileLogger)
	} else {
		writer = zerolog.MultiLevelWriter(consoleWriter)
	}

	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		level = zerolog.InfoLevel
	}

	Logger = zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Logger()
}

func init() {
	// 未显式 Init 时也能用（测试场景）
	Init("info", false)
}
