package lua

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"
)

// ToGoValue converts a Lua value to a Go value. Tables become []any when
// they are sequences and map[string]any otherwise; functions and cyclic
// references become nil.
func ToGoValue(lv lua.LValue) any {
	return toGoValueWithVisited(lv, make(map[*lua.LTable]bool))
}

func toGoValueWithVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	if lv == nil {
		return nil
	}

	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil // Break circular reference
		}
		visited[v] = true
		defer delete(visited, v)
		return tableToGo(v, visited)
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	if n := sequenceLen(t); n > 0 {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = toGoValueWithVisited(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = fmt.Sprintf("%v", float64(kv))
		default:
			key = k.String()
		}
		m[key] = toGoValueWithVisited(v, visited)
	})
	return m
}

// sequenceLen returns n if t holds exactly the keys 1..n, else 0.
func sequenceLen(t *lua.LTable) int {
	count, maxN := 0, 0
	isArray := true
	t.ForEach(func(k, _ lua.LValue) {
		count++
		if kn, ok := k.(lua.LNumber); ok {
			n := int(kn)
			if float64(n) == float64(kn) && n > 0 {
				if n > maxN {
					maxN = n
				}
				return
			}
		}
		isArray = false
	})
	if !isArray || count != maxN {
		return 0
	}
	return maxN
}

// ToLuaValue converts a Go value to a Lua value.
func ToLuaValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []string:
		t := L.NewTable()
		for _, s := range val {
			t.Append(lua.LString(s))
		}
		return t
	case []any:
		t := L.NewTable()
		for _, item := range val {
			t.Append(ToLuaValue(L, item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			t.RawSetString(k, ToLuaValue(L, val[k]))
		}
		return t
	case lua.LValue:
		return val
	default:
		ud := L.NewUserData()
		ud.Value = v
		return ud
	}
}

// GetTableString returns t[key] if it is a string.
func GetTableString(t *lua.LTable, key string) (string, bool) {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s), true
	}
	return "", false
}

// GetTableBool returns t[key] if it is a boolean.
func GetTableBool(t *lua.LTable, key string) (bool, bool) {
	if b, ok := t.RawGetString(key).(lua.LBool); ok {
		return bool(b), true
	}
	return false, false
}

// GetTableFunc returns t[key] if it is a function.
func GetTableFunc(t *lua.LTable, key string) (*lua.LFunction, bool) {
	if fn, ok := t.RawGetString(key).(*lua.LFunction); ok {
		return fn, true
	}
	return nil, false
}

// GetTableTable returns t[key] if it is a table.
func GetTableTable(t *lua.LTable, key string) (*lua.LTable, bool) {
	if tbl, ok := t.RawGetString(key).(*lua.LTable); ok {
		return tbl, true
	}
	return nil, false
}

// StringList reads a string or a sequence of strings. Any other value is
// an error.
func StringList(v lua.LValue) ([]string, error) {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LString:
		return []string{string(val)}, nil
	case *lua.LTable:
		var result []string
		var err error
		n := val.Len()
		for i := 1; i <= n; i++ {
			s, ok := val.RawGetInt(i).(lua.LString)
			if !ok {
				err = fmt.Errorf("element %d: expected string, got %s", i, val.RawGetInt(i).Type())
				break
			}
			result = append(result, string(s))
		}
		return result, err
	default:
		return nil, fmt.Errorf("expected string or list of strings, got %s", v.Type())
	}
}
