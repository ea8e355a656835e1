package config

import (
	"os"
	"strings"
)

// EnvPrefix 环境变量覆盖的前缀
// APPLOG_LOGGER__FILE__MAX_FILES=3 对应 logger.file.maxFiles
// 双下划线分隔层级，单下划线在匹配时忽略，大小写不敏感
const EnvPrefix = "APPLOG_"

// ApplyEnv 将 environ（KEY=VALUE 形式）中带 prefix 的变量合并到配置
// 已存在的 key 保持原有拼写，不存在的按小写新建
func (c *Config) ApplyEnv(prefix string, environ []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		path := strings.Split(strings.TrimPrefix(name, prefix), "__")

		current := c.data
		for i, segment := range path {
			if segment == "" {
				break
			}
			key := matchKey(current, segment)
			if i == len(path)-1 {
				current[key] = value
				break
			}
			next, ok := current[key].(map[string]any)
			if !ok {
				next = make(map[string]any)
				current[key] = next
			}
			current = next
		}
	}
}

func matchKey(m map[string]any, segment string) string {
	want := normalizeKey(segment)
	for key := range m {
		if normalizeKey(key) == want {
			return key
		}
	}
	return want
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "_", ""))
}

// replaceEnvVars 递归替换字符串中的环境变量引用
func replaceEnvVars(data map[string]any) {
	for key, val := range data {
		switch v := val.(type) {
		case string:
			data[key] = expandEnvVar(v)
		case map[string]any:
			replaceEnvVars(v)
		case []any:
			for i, item := range v {
				switch it := item.(type) {
				case string:
					v[i] = expandEnvVar(it)
				case map[string]any:
					replaceEnvVars(it)
				}
			}
		}
	}
}

// expandEnvVar 支持 ${ENV_VAR} 和 ${ENV_VAR:default_value}
// 变量未设置或为空时使用默认值
func expandEnvVar(value string) string {
	if !strings.Contains(value, "${") {
		return value
	}

	var b strings.Builder
	rest := value
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			break
		}
		end := strings.IndexByte(rest[start:], '}')
		if end < 0 {
			break
		}
		end += start

		b.WriteString(rest[:start])
		name, def, _ := strings.Cut(rest[start+2:end], ":")
		if env := os.Getenv(name); env != "" {
			b.WriteString(env)
		} else {
			b.WriteString(def)
		}
		rest = rest[end+1:]
	}
	b.WriteString(rest)
	return b.String()
}
