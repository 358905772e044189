package xconf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/omeyang/xlogfile/pkg/observability/xlog"
)

// Format 定义配置文件格式。
type Format string

// 支持的配置格式。
const (
	// FormatYAML YAML 格式。
	FormatYAML Format = "yaml"

	// FormatJSON JSON 格式。
	FormatJSON Format = "json"
)

const (
	// DefaultEnvPrefix 默认环境变量前缀
	DefaultEnvPrefix = "XLOGFILE_"

	delim = "."
	tag   = "koanf"
)

// LoadOption 加载选项
type LoadOption func(*loadOptions)

type loadOptions struct {
	path      string
	data      []byte
	format    Format
	envPrefix string
	env       bool
}

// WithFile 从文件加载，格式按扩展名检测
func WithFile(path string) LoadOption {
	return func(o *loadOptions) {
		o.path = path
	}
}

// WithBytes 从字节数据加载，需显式指定格式。优先级低于 WithFile。
func WithBytes(data []byte, format Format) LoadOption {
	return func(o *loadOptions) {
		o.data = data
		o.format = format
	}
}

// WithEnvPrefix 设置环境变量前缀，默认 DefaultEnvPrefix
func WithEnvPrefix(prefix string) LoadOption {
	return func(o *loadOptions) {
		if prefix != "" {
			o.envPrefix = prefix
		}
	}
}

// WithoutEnv 不读取环境变量
func WithoutEnv() LoadOption {
	return func(o *loadOptions) {
		o.env = false
	}
}

// 各层加载函数，测试中可替换
var (
	defaultLoader = func(k *koanf.Koanf) error {
		return k.Load(structs.Provider(DefaultSettings, tag), nil)
	}

	envLoader = func(k *koanf.Koanf, prefix string) error {
		return k.Load(env.Provider(delim, env.Opt{
			Prefix: prefix,
			TransformFunc: func(key, value string) (string, any) {
				key = strings.ToLower(strings.TrimPrefix(key, prefix))
				return strings.ReplaceAll(key, "__", delim), value
			},
		}), nil)
	}

	registerValidators = func(v *validator.Validate) error {
		if err := v.RegisterValidation("loglevel", validLogLevel); err != nil {
			return err
		}
		return v.RegisterValidation("dirpath_ok", validDirPath)
	}
)

// Load 合并默认值、配置文件与环境变量，返回校验后的 Settings。
func Load(opts ...LoadOption) (*Settings, error) {
	o := loadOptions{envPrefix: DefaultEnvPrefix, env: true}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	k := koanf.New(delim)
	if err := defaultLoader(k); err != nil {
		return nil, fmt.Errorf("%w: defaults: %w", ErrLoadFailed, err)
	}

	switch {
	case o.path != "":
		format, err := detectFormat(o.path)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(o.path)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
		}
		if err := loadData(k, data, format); err != nil {
			return nil, err
		}
	case len(o.data) > 0:
		if err := loadData(k, o.data, o.format); err != nil {
			return nil, err
		}
	}

	if o.env {
		if err := envLoader(k, o.envPrefix); err != nil {
			return nil, fmt.Errorf("%w: env: %w", ErrLoadFailed, err)
		}
	}

	var s Settings
	if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{Tag: tag}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnmarshalFailed, err)
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate 校验 Settings
func Validate(s *Settings) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := registerValidators(v); err != nil {
		return fmt.Errorf("%w: register validators: %w", ErrInvalidSettings, err)
	}
	if err := v.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed on %q", ErrInvalidSettings, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return nil
}

func validLogLevel(fl validator.FieldLevel) bool {
	_, err := xlog.ParseLevel(fl.Field().String())
	return err == nil
}

// validDirPath 拒绝空路径、NUL 字节与根目录
func validDirPath(fl validator.FieldLevel) bool {
	p := fl.Field().String()
	if p == "" || strings.ContainsRune(p, 0) {
		return false
	}
	clean := filepath.Clean(p)
	return clean != string(filepath.Separator)
}

// =============================================================================
// 内部辅助函数
// =============================================================================

// detectFormat 根据文件扩展名检测配置格式。
func detectFormat(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown extension %s", ErrUnsupportedFormat, ext)
	}
}

// loadData 加载数据到 koanf 实例。
func loadData(k *koanf.Koanf, data []byte, format Format) error {
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return fmt.Errorf("%w: %w", ErrParseFailed, err)
	}
	return nil
}
