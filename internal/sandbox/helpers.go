package sandbox

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/ctxrelay/rlm-server/internal/search"
)

// findAllCap bounds regex helper matches inside the sandbox, distinct
// from the Searcher's own (larger) default cap, per spec §4.6.
const findAllCap = 1000

func registerHelpers(L *lua.LState, state StateAccessor, out *outputBuffer) {
	registerIOHelpers(L, out)
	registerContextHelpers(L, state)
	registerStringArrayHelpers(L)
	registerRegexHelpers(L)
	registerStateHelpers(L, state)
	registerJSONHelpers(L)
	registerMathHelpers(L)
}

// --- I/O helpers ---

func registerIOHelpers(L *lua.LState, out *outputBuffer) {
	print := L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		out.Write(strings.Join(parts, "\t") + "\n")
		return 0
	})
	L.SetGlobal("print", print)

	logger := L.NewTable()
	for _, lvl := range []string{"info", "warn", "error", "debug"} {
		level := lvl
		L.SetField(logger, level, L.NewFunction(func(L *lua.LState) int {
			n := L.GetTop()
			parts := make([]string, n)
			for i := 1; i <= n; i++ {
				parts[i-1] = L.ToStringMeta(L.Get(i)).String()
			}
			out.Write(fmt.Sprintf("[%s] %s\n", strings.ToUpper(level), strings.Join(parts, "\t")))
			return 0
		}))
	}
	L.SetGlobal("logger", logger)
}

// --- Read-only context access ---

func registerContextHelpers(L *lua.LState, state StateAccessor) {
	L.SetGlobal("getContext", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		content, ok := state.GetContext(id)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(content))
		return 1
	}))

	L.SetGlobal("getContextMetadata", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		meta, ok := state.GetContextMetadata(id)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(goToLua(L, meta))
		return 1
	}))

	L.SetGlobal("listContexts", L.NewFunction(func(L *lua.LState) int {
		ids := state.ListContexts()
		tbl := L.NewTable()
		for _, id := range ids {
			tbl.Append(lua.LString(id))
		}
		L.Push(tbl)
		return 1
	}))
}

// --- State helpers ---

func registerStateHelpers(L *lua.LState, state StateAccessor) {
	L.SetGlobal("setVar", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		val := luaToGo(L.Get(2))
		ok := state.SetVar(name, val)
		L.Push(lua.LBool(ok))
		return 1
	}))
	L.SetGlobal("getVar", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		v, ok := state.GetVar(name)
		if !ok {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(goToLua(L, v))
		return 1
	}))
	L.SetGlobal("listVars", L.NewFunction(func(L *lua.LState) int {
		L.Push(goToLua(L, state.ListVars()))
		return 1
	}))
	L.SetGlobal("deleteVar", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		L.Push(lua.LBool(state.DeleteVar(name)))
		return 1
	}))

	L.SetGlobal("setAnswer", L.NewFunction(func(L *lua.LState) int {
		content := L.CheckString(1)
		ready := false
		if L.GetTop() >= 2 {
			ready = L.ToBool(2)
		}
		state.SetAnswer(content, ready)
		return 0
	}))
	L.SetGlobal("getAnswer", L.NewFunction(func(L *lua.LState) int {
		content, ready := state.GetAnswer()
		tbl := L.NewTable()
		L.SetField(tbl, "content", lua.LString(content))
		L.SetField(tbl, "ready", lua.LBool(ready))
		L.Push(tbl)
		return 1
	}))
	L.SetGlobal("appendAnswer", L.NewFunction(func(L *lua.LState) int {
		state.AppendAnswer(L.CheckString(1))
		return 0
	}))
}

// --- Regex helpers: every error is swallowed into a default so the
// helper never throws across the boundary (spec §4.6). ---

func registerRegexHelpers(L *lua.LState) {
	L.SetGlobal("search", L.NewFunction(func(L *lua.LState) int {
		text, pattern := L.CheckString(1), L.CheckString(2)
		re, err := compileSafe(pattern)
		if err != nil {
			L.Push(lua.LNil)
			return 1
		}
		loc := re.FindStringIndex(text)
		if loc == nil {
			L.Push(lua.LNil)
			return 1
		}
		tbl := L.NewTable()
		L.SetField(tbl, "text", lua.LString(text[loc[0]:loc[1]]))
		L.SetField(tbl, "offset", lua.LNumber(loc[0]))
		L.Push(tbl)
		return 1
	}))

	L.SetGlobal("findAll", L.NewFunction(func(L *lua.LState) int {
		text, pattern := L.CheckString(1), L.CheckString(2)
		re, err := compileSafe(pattern)
		if err != nil {
			L.Push(L.NewTable())
			return 1
		}
		locs := re.FindAllStringIndex(text, findAllCap)
		tbl := L.NewTable()
		for _, loc := range locs {
			row := L.NewTable()
			L.SetField(row, "text", lua.LString(text[loc[0]:loc[1]]))
			L.SetField(row, "offset", lua.LNumber(loc[0]))
			tbl.Append(row)
		}
		L.Push(tbl)
		return 1
	}))

	L.SetGlobal("replace", L.NewFunction(func(L *lua.LState) int {
		text, pattern, repl := L.CheckString(1), L.CheckString(2), L.CheckString(3)
		re, err := compileSafe(pattern)
		if err != nil {
			L.Push(lua.LString(text))
			return 1
		}
		L.Push(lua.LString(re.ReplaceAllString(text, repl)))
		return 1
	}))

	L.SetGlobal("test", L.NewFunction(func(L *lua.LState) int {
		text, pattern := L.CheckString(1), L.CheckString(2)
		re, err := compileSafe(pattern)
		if err != nil {
			L.Push(lua.LBool(false))
			return 1
		}
		L.Push(lua.LBool(re.MatchString(text)))
		return 1
	}))
}

// compileSafe reuses the same ReDoS-validated path used outside the
// sandbox (internal/search), per spec §4.6.
func compileSafe(pattern string) (*regexp.Regexp, error) {
	if _, err := search.ValidateRegex(pattern); err != nil {
		return nil, err
	}
	return regexp.Compile(pattern)
}

// --- JSON helpers: error-absorbing, return null/nil on failure ---

func registerJSONHelpers(L *lua.LState) {
	jsonTbl := L.NewTable()
	L.SetField(jsonTbl, "parse", L.NewFunction(func(L *lua.LState) int {
		var v interface{}
		if err := json.Unmarshal([]byte(L.CheckString(1)), &v); err != nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(goToLua(L, v))
		return 1
	}))
	L.SetField(jsonTbl, "stringify", L.NewFunction(func(L *lua.LState) int {
		v := luaToGo(L.Get(1))
		b, err := json.Marshal(v)
		if err != nil {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(string(b)))
		return 1
	}))
	L.SetGlobal("json", jsonTbl)
}

// --- Math ---

func registerMathHelpers(L *lua.LState) {
	L.SetGlobal("sum", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		var total float64
		tbl.ForEach(func(_, v lua.LValue) {
			if n, ok := v.(lua.LNumber); ok {
				total += float64(n)
			}
		})
		L.Push(lua.LNumber(total))
		return 1
	}))
	L.SetGlobal("avg", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		var total float64
		count := 0
		tbl.ForEach(func(_, v lua.LValue) {
			if n, ok := v.(lua.LNumber); ok {
				total += float64(n)
				count++
			}
		})
		if count == 0 {
			L.Push(lua.LNumber(0))
			return 1
		}
		L.Push(lua.LNumber(total / float64(count)))
		return 1
	}))

	// Curated subset standing in for the stdlib Lua `math` table, which
	// is unreachable with SkipOpenLibs set.
	L.SetGlobal("mathAbs", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(math.Abs(float64(L.CheckNumber(1)))))
		return 1
	}))
	L.SetGlobal("mathFloor", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(math.Floor(float64(L.CheckNumber(1)))))
		return 1
	}))
	L.SetGlobal("mathCeil", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(math.Ceil(float64(L.CheckNumber(1)))))
		return 1
	}))
	L.SetGlobal("mathRound", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(math.Round(float64(L.CheckNumber(1)))))
		return 1
	}))
	L.SetGlobal("mathMin", L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		min := float64(L.CheckNumber(1))
		for i := 2; i <= n; i++ {
			if v := float64(L.CheckNumber(i)); v < min {
				min = v
			}
		}
		L.Push(lua.LNumber(min))
		return 1
	}))
	L.SetGlobal("mathMax", L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		max := float64(L.CheckNumber(1))
		for i := 2; i <= n; i++ {
			if v := float64(L.CheckNumber(i)); v > max {
				max = v
			}
		}
		L.Push(lua.LNumber(max))
		return 1
	}))
	L.SetGlobal("mathSqrt", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(math.Sqrt(float64(L.CheckNumber(1)))))
		return 1
	}))
	L.SetGlobal("mathPow", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(math.Pow(float64(L.CheckNumber(1)), float64(L.CheckNumber(2)))))
		return 1
	}))
}

// --- String/array/object helpers ---

func registerStringArrayHelpers(L *lua.LState) {
	L.SetGlobal("strLen", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(len([]rune(L.CheckString(1)))))
		return 1
	}))
	L.SetGlobal("strSlice", L.NewFunction(func(L *lua.LState) int {
		s := []rune(L.CheckString(1))
		start := clampIndex(L.CheckInt(2), len(s))
		end := len(s)
		if L.GetTop() >= 3 {
			end = clampIndex(L.CheckInt(3), len(s))
		}
		if start > end {
			start = end
		}
		L.Push(lua.LString(string(s[start:end])))
		return 1
	}))
	L.SetGlobal("strSplit", L.NewFunction(func(L *lua.LState) int {
		s, sep := L.CheckString(1), L.CheckString(2)
		parts := strings.Split(s, sep)
		tbl := L.NewTable()
		for _, p := range parts {
			tbl.Append(lua.LString(p))
		}
		L.Push(tbl)
		return 1
	}))
	L.SetGlobal("strJoin", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		sep := L.CheckString(2)
		var parts []string
		tbl.ForEach(func(_, v lua.LValue) { parts = append(parts, lua.LVAsString(v)) })
		L.Push(lua.LString(strings.Join(parts, sep)))
		return 1
	}))
	L.SetGlobal("strUpper", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(strings.ToUpper(L.CheckString(1))))
		return 1
	}))
	L.SetGlobal("strLower", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(strings.ToLower(L.CheckString(1))))
		return 1
	}))
	L.SetGlobal("strTrim", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(strings.TrimSpace(L.CheckString(1))))
		return 1
	}))
	L.SetGlobal("strIncludes", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(strings.Contains(L.CheckString(1), L.CheckString(2))))
		return 1
	}))
	L.SetGlobal("strStartsWith", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(strings.HasPrefix(L.CheckString(1), L.CheckString(2))))
		return 1
	}))
	L.SetGlobal("strEndsWith", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LBool(strings.HasSuffix(L.CheckString(1), L.CheckString(2))))
		return 1
	}))
	L.SetGlobal("strPad", L.NewFunction(func(L *lua.LState) int {
		s := L.CheckString(1)
		width := L.CheckInt(2)
		padChar := " "
		if L.GetTop() >= 3 {
			padChar = L.CheckString(3)
		}
		for len([]rune(s)) < width {
			s = s + padChar
		}
		L.Push(lua.LString(s))
		return 1
	}))

	L.SetGlobal("arrRange", L.NewFunction(func(L *lua.LState) int {
		const maxRange = 1_000_000
		start, end := L.CheckInt(1), L.CheckInt(2)
		step := 1
		if L.GetTop() >= 3 {
			step = L.CheckInt(3)
		}
		if step == 0 {
			step = 1
		}
		tbl := L.NewTable()
		count := 0
		if step > 0 {
			for i := start; i < end && count < maxRange; i += step {
				tbl.Append(lua.LNumber(i))
				count++
			}
		} else {
			for i := start; i > end && count < maxRange; i += step {
				tbl.Append(lua.LNumber(i))
				count++
			}
		}
		L.Push(tbl)
		return 1
	}))

	L.SetGlobal("arrUnique", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		seen := map[string]bool{}
		out := L.NewTable()
		tbl.ForEach(func(_, v lua.LValue) {
			key := v.String()
			if !seen[key] {
				seen[key] = true
				out.Append(v)
			}
		})
		L.Push(out)
		return 1
	}))

	L.SetGlobal("arrTake", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		n := L.CheckInt(2)
		out := L.NewTable()
		i := 0
		tbl.ForEach(func(_, v lua.LValue) {
			if i < n {
				out.Append(v)
			}
			i++
		})
		L.Push(out)
		return 1
	}))

	L.SetGlobal("arrSkip", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		n := L.CheckInt(2)
		out := L.NewTable()
		i := 0
		tbl.ForEach(func(_, v lua.LValue) {
			if i >= n {
				out.Append(v)
			}
			i++
		})
		L.Push(out)
		return 1
	}))

	L.SetGlobal("arrFlatten", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		out := L.NewTable()
		tbl.ForEach(func(_, v lua.LValue) {
			if sub, ok := v.(*lua.LTable); ok {
				sub.ForEach(func(_, sv lua.LValue) { out.Append(sv) })
			} else {
				out.Append(v)
			}
		})
		L.Push(out)
		return 1
	}))

	L.SetGlobal("arrMap", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		fn := L.CheckFunction(2)
		out := L.NewTable()
		n := tbl.Len()
		for i := 1; i <= n; i++ {
			if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, tbl.RawGetInt(i), lua.LNumber(i)); err != nil {
				L.RaiseError("arrMap: %v", err)
			}
			v := L.Get(-1)
			L.Pop(1)
			out.Append(v)
		}
		L.Push(out)
		return 1
	}))

	L.SetGlobal("arrFilter", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		fn := L.CheckFunction(2)
		out := L.NewTable()
		n := tbl.Len()
		for i := 1; i <= n; i++ {
			v := tbl.RawGetInt(i)
			if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, v, lua.LNumber(i)); err != nil {
				L.RaiseError("arrFilter: %v", err)
			}
			keep := L.Get(-1)
			L.Pop(1)
			if lua.LVAsBool(keep) {
				out.Append(v)
			}
		}
		L.Push(out)
		return 1
	}))

	L.SetGlobal("arrReduce", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		fn := L.CheckFunction(2)
		var acc lua.LValue = lua.LNil
		if L.GetTop() >= 3 {
			acc = L.Get(3)
		}
		n := tbl.Len()
		for i := 1; i <= n; i++ {
			if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, acc, tbl.RawGetInt(i), lua.LNumber(i)); err != nil {
				L.RaiseError("arrReduce: %v", err)
			}
			acc = L.Get(-1)
			L.Pop(1)
		}
		L.Push(acc)
		return 1
	}))

	L.SetGlobal("arrSort", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		var fn *lua.LFunction
		if L.GetTop() >= 2 {
			fn = L.CheckFunction(2)
		}
		n := tbl.Len()
		vals := make([]lua.LValue, n)
		for i := 1; i <= n; i++ {
			vals[i-1] = tbl.RawGetInt(i)
		}
		sort.SliceStable(vals, func(i, j int) bool {
			if fn != nil {
				if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, vals[i], vals[j]); err != nil {
					L.RaiseError("arrSort: %v", err)
				}
				less := L.Get(-1)
				L.Pop(1)
				return lua.LVAsBool(less)
			}
			ni, oki := vals[i].(lua.LNumber)
			nj, okj := vals[j].(lua.LNumber)
			if oki && okj {
				return ni < nj
			}
			return vals[i].String() < vals[j].String()
		})
		out := L.NewTable()
		for _, v := range vals {
			out.Append(v)
		}
		L.Push(out)
		return 1
	}))

	L.SetGlobal("arrChunk", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		size := L.CheckInt(2)
		if size < 1 {
			L.RaiseError("arrChunk: size must be >= 1")
		}
		out := L.NewTable()
		n := tbl.Len()
		var cur *lua.LTable
		for i := 1; i <= n; i++ {
			if (i-1)%size == 0 {
				cur = L.NewTable()
				out.Append(cur)
			}
			cur.Append(tbl.RawGetInt(i))
		}
		L.Push(out)
		return 1
	}))

	L.SetGlobal("arrGroupBy", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		fn := L.CheckFunction(2)
		out := L.NewTable()
		n := tbl.Len()
		for i := 1; i <= n; i++ {
			v := tbl.RawGetInt(i)
			if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, v, lua.LNumber(i)); err != nil {
				L.RaiseError("arrGroupBy: %v", err)
			}
			key := L.Get(-1)
			L.Pop(1)
			keyStr := lua.LVAsString(key)
			bucket, ok := out.RawGetString(keyStr).(*lua.LTable)
			if !ok {
				bucket = L.NewTable()
				out.RawSetString(keyStr, bucket)
			}
			bucket.Append(v)
		}
		L.Push(out)
		return 1
	}))

	L.SetGlobal("keys", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		out := L.NewTable()
		tbl.ForEach(func(k, _ lua.LValue) { out.Append(k) })
		L.Push(out)
		return 1
	}))
	L.SetGlobal("values", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		out := L.NewTable()
		tbl.ForEach(func(_, v lua.LValue) { out.Append(v) })
		L.Push(out)
		return 1
	}))
	L.SetGlobal("entries", L.NewFunction(func(L *lua.LState) int {
		tbl := L.CheckTable(1)
		out := L.NewTable()
		tbl.ForEach(func(k, v lua.LValue) {
			row := L.NewTable()
			row.Append(k)
			row.Append(v)
			out.Append(row)
		})
		L.Push(out)
		return 1
	}))
}

func clampIndex(i, n int) int {
	if i < 0 {
		i = 0
	}
	if i > n {
		i = n
	}
	return i
}

// --- Go <-> Lua value conversion ---

func goToLua(L *lua.LState, v interface{}) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case string:
		return lua.LString(val)
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case map[string]interface{}:
		tbl := L.NewTable()
		for k, vv := range val {
			L.SetField(tbl, k, goToLua(L, vv))
		}
		return tbl
	case []interface{}:
		tbl := L.NewTable()
		for _, vv := range val {
			tbl.Append(goToLua(L, vv))
		}
		return tbl
	case []string:
		tbl := L.NewTable()
		for _, vv := range val {
			tbl.Append(lua.LString(vv))
		}
		return tbl
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

func luaToGo(v lua.LValue) interface{} {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		return luaTableToGo(val)
	default:
		return v.String()
	}
}

func luaTableToGo(tbl *lua.LTable) interface{} {
	maxN := tbl.Len()
	isArray := maxN > 0
	result := map[string]interface{}{}
	arr := make([]interface{}, 0, maxN)

	tbl.ForEach(func(k, v lua.LValue) {
		if n, ok := k.(lua.LNumber); ok && isArray {
			idx := int(n)
			if idx >= 1 && idx <= maxN {
				return
			}
		}
		isArray = false
		result[keyToString(k)] = luaToGo(v)
	})

	if isArray {
		for i := 1; i <= maxN; i++ {
			arr = append(arr, luaToGo(tbl.RawGetInt(i)))
		}
		return arr
	}
	for i := 1; i <= maxN; i++ {
		result[strconv.Itoa(i)] = luaToGo(tbl.RawGetInt(i))
	}
	return result
}

func keyToString(k lua.LValue) string {
	if s, ok := k.(lua.LString); ok {
		return string(s)
	}
	return k.String()
}
