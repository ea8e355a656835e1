// Package mapstruct 将配置文件解析出的 map[string]any 解码到结构体
package mapstruct

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnusedKeys 输入中存在结构体没有对应字段的 key（仅 ErrorUnused 模式）
	ErrUnusedKeys = errors.New("unused keys")

	durationType = reflect.TypeOf(time.Duration(0))
	timeType     = reflect.TypeOf(time.Time{})
)

// Decoder 提供 map[string]any 到 struct 的解码功能
type Decoder struct {
	// TagName 用于字段映射的标签名，默认 yaml；标签为空时使用字段名
	TagName string

	// StrictMode 类型不匹配时返回错误，关闭后跳过无法解码的字段
	StrictMode bool

	// ErrorUnused 输入中的 key 没有对应字段时返回错误
	ErrorUnused bool
}

// New 创建一个新的解码器，默认使用 yaml 标签并开启严格模式
func New() *Decoder {
	return &Decoder{
		TagName:    "yaml",
		StrictMode: true,
	}
}

// WithTagName 设置标签名
func (d *Decoder) WithTagName(tagName string) *Decoder {
	d.TagName = tagName
	return d
}

// WithStrictMode 设置严格模式
func (d *Decoder) WithStrictMode(strict bool) *Decoder {
	d.StrictMode = strict
	return d
}

// WithErrorUnused 设置是否拒绝多余的 key
func (d *Decoder) WithErrorUnused(on bool) *Decoder {
	d.ErrorUnused = on
	return d
}

// Decode 将 input 解码到 target，target 必须是结构体指针
func (d *Decoder) Decode(input map[string]any, target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer")
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("target must be a struct")
	}

	var unused []string
	if err := d.decodeStruct("", input, v, &unused); err != nil {
		return err
	}
	if d.ErrorUnused && len(unused) > 0 {
		sort.Strings(unused)
		return fmt.Errorf("%w: %s", ErrUnusedKeys, strings.Join(unused, ", "))
	}
	return nil
}

func (d *Decoder) decodeStruct(path string, input map[string]any, v reflect.Value, unused *[]string) error {
	used := make(map[string]bool, len(input))
	if err := d.decodeFields(path, input, v, used, unused); err != nil {
		return err
	}
	for key := range input {
		if !used[key] {
			*unused = append(*unused, join(path, key))
		}
	}
	return nil
}

func (d *Decoder) decodeFields(path string, input map[string]any, v reflect.Value, used map[string]bool, unused *[]string) error {
	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		fv := v.Field(i)

		// 内嵌结构体的字段与外层同级
		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			if err := d.decodeFields(path, input, fv, used, unused); err != nil {
				return err
			}
			continue
		}
		if !fv.CanSet() {
			continue
		}

		name := d.fieldName(field)
		if name == "" {
			continue
		}
		key, ok := lookup(input, name)
		if !ok {
			continue
		}
		used[key] = true

		if err := d.decodeValue(join(path, name), input[key], fv, unused); err != nil {
			if d.StrictMode {
				return err
			}
		}
	}
	return nil
}

// fieldName 获取字段的映射名称，"-" 表示忽略
func (d *Decoder) fieldName(field reflect.StructField) string {
	if d.TagName == "" {
		return field.Name
	}
	tag, _, _ := strings.Cut(field.Tag.Get(d.TagName), ",")
	switch tag {
	case "-":
		return ""
	case "":
		return field.Name
	default:
		return tag
	}
}

// lookup 先精确匹配，再忽略大小写匹配（环境变量覆盖的 key 为小写）
func lookup(input map[string]any, name string) (string, bool) {
	if _, ok := input[name]; ok {
		return name, true
	}
	for key := range input {
		if strings.EqualFold(key, name) {
			return key, true
		}
	}
	return "", false
}

func (d *Decoder) decodeValue(path string, in any, v reflect.Value, unused *[]string) error {
	if in == nil {
		return nil
	}

	t := v.Type()
	switch t {
	case durationType:
		dur, err := toDuration(in)
		if err != nil {
			return fieldError(path, err)
		}
		v.SetInt(int64(dur))
		return nil
	case timeType:
		tm, err := toTime(in)
		if err != nil {
			return fieldError(path, err)
		}
		v.Set(reflect.ValueOf(tm))
		return nil
	}

	if reflect.TypeOf(in) == t {
		v.Set(reflect.ValueOf(in))
		return nil
	}

	switch t.Kind() {
	case reflect.Pointer:
		elem := reflect.New(t.Elem())
		if err := d.decodeValue(path, in, elem.Elem(), unused); err != nil {
			return err
		}
		v.Set(elem)
		return nil

	case reflect.Struct:
		m, ok := in.(map[string]any)
		if !ok {
			return fieldError(path, fmt.Errorf("cannot decode %T to struct", in))
		}
		return d.decodeStruct(path, m, v, unused)

	case reflect.Slice:
		items, ok := toSlice(in)
		if !ok {
			return fieldError(path, fmt.Errorf("cannot decode %T to slice", in))
		}
		s := reflect.MakeSlice(t, len(items), len(items))
		for i, item := range items {
			if err := d.decodeValue(fmt.Sprintf("%s[%d]", path, i), item, s.Index(i), unused); err != nil {
				return err
			}
		}
		v.Set(s)
		return nil

	case reflect.Map:
		m, ok := in.(map[string]any)
		if !ok || t.Key().Kind() != reflect.String {
			return fieldError(path, fmt.Errorf("cannot decode %T to %s", in, t))
		}
		out := reflect.MakeMapWithSize(t, len(m))
		for key, item := range m {
			elem := reflect.New(t.Elem()).Elem()
			if err := d.decodeValue(join(path, key), item, elem, unused); err != nil {
				return err
			}
			out.SetMapIndex(reflect.ValueOf(key).Convert(t.Key()), elem)
		}
		v.Set(out)
		return nil
	}

	if err := decodeBasic(in, v); err != nil {
		return fieldError(path, err)
	}
	return nil
}

func decodeBasic(in any, v reflect.Value) error {
	switch v.Kind() {
	case reflect.String:
		switch s := in.(type) {
		case string:
			v.SetString(s)
		case []byte:
			v.SetString(string(s))
		default:
			v.SetString(fmt.Sprint(s))
		}

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt(in)
		if err != nil {
			return err
		}
		if v.OverflowInt(n) {
			return fmt.Errorf("value %d out of range for %s", n, v.Type())
		}
		v.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toInt(in)
		if err != nil {
			return err
		}
		if n < 0 || v.OverflowUint(uint64(n)) {
			return fmt.Errorf("value %d out of range for %s", n, v.Type())
		}
		v.SetUint(uint64(n))

	case reflect.Float32, reflect.Float64:
		f, err := toFloat(in)
		if err != nil {
			return err
		}
		v.SetFloat(f)

	case reflect.Bool:
		switch b := in.(type) {
		case bool:
			v.SetBool(b)
		case string:
			parsed, err := strconv.ParseBool(b)
			if err != nil {
				return fmt.Errorf("cannot parse string as bool: %w", err)
			}
			v.SetBool(parsed)
		default:
			return fmt.Errorf("cannot decode %T to bool", in)
		}

	default:
		return fmt.Errorf("unsupported type: %s", v.Type())
	}
	return nil
}

func toInt(in any) (int64, error) {
	switch n := in.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return int64(n), nil
	case float32:
		return toInt(float64(n))
	case float64:
		// JSON 数字统一为 float64，只接受整数值
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("cannot decode %v to integer", n)
		}
		return int64(n), nil
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse string as int: %w", err)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("cannot decode %T to int", in)
	}
}

func toFloat(in any) (float64, error) {
	switch n := in.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot parse string as float: %w", err)
		}
		return parsed, nil
	default:
		i, err := toInt(in)
		if err != nil {
			return 0, fmt.Errorf("cannot decode %T to float", in)
		}
		return float64(i), nil
	}
}

// toDuration 字符串按 time.ParseDuration 解析，数字按秒解析
func toDuration(in any) (time.Duration, error) {
	switch v := in.(type) {
	case string:
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("cannot parse duration: %w", err)
		}
		return d, nil
	case time.Duration:
		return v, nil
	case float64:
		return time.Duration(v * float64(time.Second)), nil
	default:
		n, err := toInt(in)
		if err != nil {
			return 0, fmt.Errorf("cannot decode %T to duration", in)
		}
		return time.Duration(n) * time.Second, nil
	}
}

func toTime(in any) (time.Time, error) {
	switch v := in.(type) {
	case time.Time:
		return v, nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse time string: %s", v)
	default:
		n, err := toInt(in)
		if err != nil {
			return time.Time{}, fmt.Errorf("cannot decode %T to time.Time", in)
		}
		return time.Unix(n, 0), nil
	}
}

// toSlice 逗号分隔的字符串也视为切片，便于环境变量覆盖
func toSlice(in any) ([]any, bool) {
	if s, ok := in.(string); ok {
		if strings.TrimSpace(s) == "" {
			return nil, true
		}
		parts := strings.Split(s, ",")
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = strings.TrimSpace(p)
		}
		return out, true
	}

	v := reflect.ValueOf(in)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, v.Len())
	for i := range v.Len() {
		out[i] = v.Index(i).Interface()
	}
	return out, true
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func fieldError(path string, err error) error {
	return fmt.Errorf("failed to decode field %s: %w", path, err)
}
