package config

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/HorseArcher567/applog/pkg/mapstruct"
)

// Config 配置管理器，多个来源按加载顺序合并，后加载的覆盖先加载的
type Config struct {
	data map[string]any
	mu   sync.RWMutex
}

// New 创建一个空的配置管理器
func New() *Config {
	return &Config{
		data: make(map[string]any),
	}
}

// Load 依次加载配置文件（格式由扩展名决定）并合并
// 字符串中的 ${ENV_VAR} 或 ${ENV_VAR:default} 会被替换
// 最后应用 APPLOG_ 前缀的环境变量覆盖
func Load(paths ...string) (*Config, error) {
	cfg := New()
	for _, path := range paths {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(EnvPrefix, os.Environ())
	return cfg, nil
}

// MustLoad 同 Load（失败时 panic），适用于程序启动阶段
func MustLoad(paths ...string) *Config {
	cfg, err := Load(paths...)
	if err != nil {
		panic(fmt.Errorf("config: failed to load config from %v: %w", paths, err))
	}
	return cfg
}

// LoadFile 从文件加载配置并合并到现有配置
func (c *Config) LoadFile(path string) error {
	data, err := parseFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config from file %s: %w", path, err)
	}
	replaceEnvVars(data)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = mergeMaps(c.data, data)
	return nil
}

// LoadBytes 从字节流加载配置并合并到现有配置
func (c *Config) LoadBytes(data []byte, format Format) error {
	parsed, err := parse(data, format)
	if err != nil {
		return fmt.Errorf("failed to load config from bytes: %w", err)
	}
	replaceEnvVars(parsed)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = mergeMaps(c.data, parsed)
	return nil
}

// Set 设置配置值，支持路径访问（如 "logger.file.maxFiles"）
func (c *Config) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := strings.Split(key, ".")
	current := c.data
	for _, k := range keys[:len(keys)-1] {
		next, ok := current[k].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[k] = next
		}
		current = next
	}
	current[keys[len(keys)-1]] = value
}

// Get 获取配置值，支持路径访问
func (c *Config) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var current any = c.data
	for _, k := range strings.Split(key, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[k]; !ok {
			return nil, false
		}
	}
	return current, true
}

// Has 检查配置项是否存在
func (c *Config) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Unmarshal 将全部配置解码到结构体
func (c *Config) Unmarshal(target any) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return mapstruct.New().Decode(c.data, target)
}

// UnmarshalKey 将指定 key 的配置解码到结构体，key 不存在时 target 保持不变
func (c *Config) UnmarshalKey(key string, target any) error {
	val, ok := c.Get(key)
	if !ok {
		return nil
	}

	section, ok := val.(map[string]any)
	if !ok {
		return fmt.Errorf("config key '%s' cannot be unmarshaled to struct (type: %T, expected: map/object)", key, val)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := mapstruct.New().Decode(section, target); err != nil {
		return fmt.Errorf("failed to unmarshal config key '%s': %w", key, err)
	}
	return nil
}

// Dump 以指定格式导出合并后的配置，用于排查配置来源
func (c *Config) Dump(format Format) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return marshal(c.data, format)
}

// mergeMaps 递归合并，src 覆盖 dst，返回新 map
func mergeMaps(dst, src map[string]any) map[string]any {
	result := copyMap(dst)
	for key, srcVal := range src {
		if dstMap, ok := result[key].(map[string]any); ok {
			if srcMap, ok := srcVal.(map[string]any); ok {
				result[key] = mergeMaps(dstMap, srcMap)
				continue
			}
		}
		result[key] = srcVal
	}
	return result
}

func copyMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for key, val := range src {
		if m, ok := val.(map[string]any); ok {
			dst[key] = copyMap(m)
		} else {
			dst[key] = val
		}
	}
	return dst
}
