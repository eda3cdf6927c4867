package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, state StateAccessor, code string) *ExecutionRecord {
	t.Helper()
	e := New(2*time.Second, 0)
	rec := e.Execute(context.Background(), code, state)
	require.True(t, rec.Success, "script failed: %s", rec.Error)
	return rec
}

func TestRegexHelperSearchUsesGoRegexSyntax(t *testing.T) {
	state := newFakeState()
	rec := run(t, state, `
		local m = search("hello world", "w\\w+d")
		print(m.text, m.offset)
	`)
	assert.Contains(t, rec.Output, "world")
	assert.Contains(t, rec.Output, "6")
}

func TestRegexHelperFindAllReturnsAllMatches(t *testing.T) {
	state := newFakeState()
	rec := run(t, state, `
		local all = findAll("cat cat cat", "cat")
		print(#all)
	`)
	assert.Contains(t, rec.Output, "3")
}

func TestRegexHelperReplace(t *testing.T) {
	state := newFakeState()
	rec := run(t, state, `print(replace("aaa", "a", "b"))`)
	assert.Contains(t, rec.Output, "bbb")
}

func TestRegexHelperRejectsReDoSPatternGracefully(t *testing.T) {
	state := newFakeState()
	rec := run(t, state, `
		print(test("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "(a+)+b"))
	`)
	assert.Contains(t, rec.Output, "false")
}

func TestJSONHelpersParseAndStringify(t *testing.T) {
	state := newFakeState()
	rec := run(t, state, `
		local obj = json.parse('{"a":1,"b":"two"}')
		print(obj.a, obj.b)
		print(json.stringify({x = 1}))
	`)
	assert.Contains(t, rec.Output, "1")
	assert.Contains(t, rec.Output, "two")
}

func TestJSONHelperParseInvalidReturnsNil(t *testing.T) {
	state := newFakeState()
	rec := run(t, state, `print(json.parse("not json"))`)
	assert.Contains(t, rec.Output, "nil")
}

func TestMathHelpersSumAndAvg(t *testing.T) {
	state := newFakeState()
	rec := run(t, state, `
		print(sum({1, 2, 3}))
		print(avg({1, 2, 3}))
	`)
	assert.Contains(t, rec.Output, "6")
	assert.Contains(t, rec.Output, "2")
}

func TestStringHelpers(t *testing.T) {
	state := newFakeState()
	rec := run(t, state, `
		print(strLen("hello"))
		print(strUpper("hi"))
		print(strLower("HI"))
		print(strTrim("  hi  "))
		print(strIncludes("hello", "ell"))
		print(strStartsWith("hello", "he"))
		print(strEndsWith("hello", "lo"))
		print(strSplit("a,b,c", ",")[1])
		print(strJoin({"a", "b"}, "-"))
	`)
	lines := rec.Output
	assert.Contains(t, lines, "5")
	assert.Contains(t, lines, "HI")
	assert.Contains(t, lines, "hi")
	assert.Contains(t, lines, "true")
	assert.Contains(t, lines, "a-b")
}

func TestArrayHelpers(t *testing.T) {
	state := newFakeState()
	rec := run(t, state, `
		print(#arrRange(0, 5))
		print(#arrUnique({1, 1, 2, 2, 3}))
		print(#arrTake({1, 2, 3, 4}, 2))
		print(#arrSkip({1, 2, 3, 4}, 2))
		print(#arrFlatten({{1, 2}, {3}}))
	`)
	assert.Contains(t, rec.Output, "5")
	assert.Contains(t, rec.Output, "3")
	assert.Contains(t, rec.Output, "2")
}

func TestArrayMapFilterReduce(t *testing.T) {
	state := newFakeState()
	rec := run(t, state, `
		local doubled = arrMap({1, 2, 3}, function(v) return v * 2 end)
		print(doubled[1], doubled[2], doubled[3])

		local evens = arrFilter({1, 2, 3, 4, 5}, function(v) return v % 2 == 0 end)
		print(#evens, evens[1], evens[2])

		local total = arrReduce({1, 2, 3, 4}, function(acc, v) return acc + v end, 0)
		print(total)
	`)
	assert.Contains(t, rec.Output, "2\t4\t6")
	assert.Contains(t, rec.Output, "2\t2\t4")
	assert.Contains(t, rec.Output, "10")
}

func TestArraySort(t *testing.T) {
	state := newFakeState()
	rec := run(t, state, `
		local asc = arrSort({3, 1, 2})
		print(asc[1], asc[2], asc[3])

		local desc = arrSort({3, 1, 2}, function(a, b) return a > b end)
		print(desc[1], desc[2], desc[3])
	`)
	assert.Contains(t, rec.Output, "1\t2\t3")
	assert.Contains(t, rec.Output, "3\t2\t1")
}

func TestArrayChunk(t *testing.T) {
	state := newFakeState()
	rec := run(t, state, `
		local chunks = arrChunk({1, 2, 3, 4, 5}, 2)
		print(#chunks, #chunks[1], #chunks[3])
	`)
	assert.Contains(t, rec.Output, "3\t2\t1")
}

func TestArrayGroupBy(t *testing.T) {
	state := newFakeState()
	rec := run(t, state, `
		local groups = arrGroupBy({1, 2, 3, 4, 5}, function(v)
			if v % 2 == 0 then return "even" else return "odd" end
		end)
		print(#groups.even, #groups.odd)
	`)
	assert.Contains(t, rec.Output, "2\t3")
}

func TestMathHelperSuite(t *testing.T) {
	state := newFakeState()
	rec := run(t, state, `
		print(mathAbs(-4))
		print(mathFloor(1.9))
		print(mathCeil(1.1))
		print(mathRound(1.5))
		print(mathMin(3, 1, 2))
		print(mathMax(3, 1, 2))
		print(mathSqrt(9))
		print(mathPow(2, 5))
	`)
	lines := rec.Output
	assert.Contains(t, lines, "4")
	assert.Contains(t, lines, "1")
	assert.Contains(t, lines, "2")
	assert.Contains(t, lines, "3")
	assert.Contains(t, lines, "32")
}

func TestContextHelpers(t *testing.T) {
	state := newFakeState()
	state.contexts["main"] = "hello world"
	rec := run(t, state, `
		print(getContext("main"))
		local meta = getContextMetadata("main")
		print(meta.length)
		print(#listContexts())
	`)
	assert.Contains(t, rec.Output, "hello world")
	assert.Contains(t, rec.Output, "11")
	assert.Contains(t, rec.Output, "1")
}

func TestAnswerHelpers(t *testing.T) {
	state := newFakeState()
	run(t, state, `
		setAnswer("partial", false)
		appendAnswer(" more")
	`)
	assert.Equal(t, "partial more", state.answer)
	assert.False(t, state.ready)
}

func TestKeysValuesEntries(t *testing.T) {
	state := newFakeState()
	rec := run(t, state, `
		local t = {a = 1, b = 2}
		print(#keys(t))
		print(#values(t))
		print(#entries(t))
	`)
	assert.Contains(t, rec.Output, "2")
}
