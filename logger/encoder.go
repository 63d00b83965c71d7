package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset  = "\x1b[0m"
	colorBold   = "\x1b[1m"
	colorDim    = "\x1b[38;5;245m"
	colorName   = "\x1b[38;5;108m"
	colorValue  = "\x1b[38;5;109m"
	colorWarn   = "\x1b[38;5;214m"
	colorError  = "\x1b[38;5;167m"
	colorDebug  = "\x1b[38;5;175m"
	timeLayout  = "15:04:05"
	fieldIndent = "  "
)

var bufferPool = buffer.NewPool()

// compactEncoder renders one line per entry:
// "13:04:35  p.manager  Index added  index_key=adults members=412"
type compactEncoder struct {
	zapcore.Encoder // Base encoder for With() fields
	context         []zapcore.Field
}

func newCompactEncoder() *compactEncoder {
	return &compactEncoder{
		Encoder: zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
	}
}

func (enc *compactEncoder) Clone() zapcore.Encoder {
	return &compactEncoder{
		Encoder: enc.Encoder.Clone(),
		context: append([]zapcore.Field(nil), enc.context...),
	}
}

// AddString and friends are routed through zapcore.Field so that fields
// attached with With() are rendered alongside per-entry fields.
func (enc *compactEncoder) AddString(key, value string) {
	enc.context = append(enc.context, zap.String(key, value))
}

func (enc *compactEncoder) AddInt64(key string, value int64) {
	enc.context = append(enc.context, zap.Int64(key, value))
}

func (enc *compactEncoder) AddBool(key string, value bool) {
	enc.context = append(enc.context, zap.Bool(key, value))
}

func (enc *compactEncoder) AddReflected(key string, value interface{}) error {
	enc.context = append(enc.context, zap.Any(key, value))
	return nil
}

func (enc *compactEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := bufferPool.Get()

	final.AppendString(colorDim)
	final.AppendString(ent.Time.Format(timeLayout))
	final.AppendString(colorReset)

	if ent.Level != zapcore.InfoLevel {
		final.AppendString(fieldIndent)
		final.AppendString(levelString(ent.Level))
	}

	if ent.LoggerName != "" {
		final.AppendString(fieldIndent)
		final.AppendString(colorName)
		final.AppendString(abbreviateName(ent.LoggerName))
		final.AppendString(colorReset)
	}

	final.AppendString(fieldIndent)
	final.AppendString(ent.Message)

	all := append(append([]zapcore.Field(nil), enc.context...), fields...)
	if len(all) > 0 {
		final.AppendString(fieldIndent)
		final.AppendString(formatFields(all))
	}

	final.AppendString("\n")
	return final, nil
}

func levelString(level zapcore.Level) string {
	switch level {
	case zapcore.DebugLevel:
		return colorDebug + "DEBUG" + colorReset
	case zapcore.WarnLevel:
		return colorBold + colorWarn + "WARN" + colorReset
	default:
		return colorBold + colorError + level.CapitalString() + colorReset
	}
}

// abbreviateName shortens component names: pop.manager -> p.manager
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 && parts[0] != "" {
		return string(parts[0][0]) + "." + strings.Join(parts[1:], ".")
	}
	return name
}

// fieldValue extracts the value from a zap field, handling the common types
func fieldValue(field zapcore.Field) string {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", field.Integer)
	case zapcore.BoolType:
		return fmt.Sprintf("%t", field.Integer == 1)
	case zapcore.ErrorType:
		if err, ok := field.Interface.(error); ok {
			return err.Error()
		}
	}
	if field.Interface != nil {
		return fmt.Sprintf("%v", field.Interface)
	}
	return ""
}

// formatFields renders key=value pairs in the order they were given.
func formatFields(fields []zapcore.Field) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Key+"="+colorValue+fieldValue(f)+colorReset)
	}
	return strings.Join(parts, " ")
}
