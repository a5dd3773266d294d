// 包 logx 是对标准库 slog 的薄封装：
// - 支持级别/格式/语言/颜色配置
// - pretty 格式输出中英文标签（[信息]/[INFO]），json 格式交由 zerolog 输出
// - 通过 Debugf/Infof/Warnf/Errorf 暴露，Logger() 供需要 *slog.Logger 的库使用
package logx

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu      sync.RWMutex
	current = slog.Default()
)

// Init 根据 level/format/locale/colorMode 初始化全局日志器并设为 slog 默认。
func Init(level, format, locale, colorMode string) {
	InitWriter(os.Stdout, level, format, locale, colorMode)
}

// InitWriter 与 Init 相同，但输出到指定 writer（测试用）。
func InitWriter(w io.Writer, level, format, locale, colorMode string) {
	lv := parseSlogLevel(level)
	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		handler = NewZerologHandler(w, lv)
	case "pretty", "":
		handler = NewPrettyHandler(w, lv, locale, colorMode)
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})
	}
	l := slog.New(handler)
	mu.Lock()
	current = l
	mu.Unlock()
	slog.SetDefault(l)
}

// Logger 返回当前配置的 *slog.Logger。
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// parseSlogLevel 将字符串级别解析为 slog.Level；off 时返回一个极高的级别以静音。
func parseSlogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none", "silent", "off":
		return levelOff
	default:
		return slog.LevelInfo
	}
}

const levelOff slog.Level = 100

// 便捷函数：格式化并按级别输出
func Debugf(format string, v ...any) { Logger().Debug(fmt.Sprintf(format, v...)) }
func Infof(format string, v ...any)  { Logger().Info(fmt.Sprintf(format, v...)) }
func Warnf(format string, v ...any)  { Logger().Warn(fmt.Sprintf(format, v...)) }
func Errorf(format string, v ...any) { Logger().Error(fmt.Sprintf(format, v...)) }
