package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"objmodel/pkg/arraystore"
	"objmodel/pkg/gc"
	"objmodel/pkg/jsstring"
	"objmodel/pkg/object"
	"objmodel/pkg/ordered"
	"objmodel/pkg/value"
	"objmodel/pkg/vm"
)

// shell runs inspection commands against one engine. Named bindings are
// held through persistent handles so they survive collections.
type shell struct {
	engine *vm.Engine
	vars   map[string]*gc.Handle
	out    io.Writer
}

func newShell(e *vm.Engine, out io.Writer) *shell {
	return &shell{engine: e, vars: make(map[string]*gc.Handle), out: out}
}

type command struct {
	args  int // minimum argument count
	usage string
	run   func(sh *shell, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":   {0, "help", (*shell).help},
		"obj":    {1, "obj <var>", (*shell).newObject},
		"arr":    {1, "arr <var>", (*shell).newArray},
		"map":    {1, "map <var>", (*shell).newMap},
		"str":    {2, "str <var> <literal>", (*shell).newString},
		"cat":    {3, "cat <var> <a> <b>", (*shell).concat},
		"search": {2, "search <var> <pattern>", (*shell).search},
		"utf16":  {1, "utf16 <var>", (*shell).utf16},
		"load":   {2, "load <var> <file>", (*shell).load},
		"set":    {3, "set <var> <key> <value>", (*shell).set},
		"get":    {2, "get <var> <key>", (*shell).get},
		"del":    {2, "del <var> <key>", (*shell).del},
		"keys":   {1, "keys <var>", (*shell).keys},
		"push":   {2, "push <var> <value>", (*shell).push},
		"sort":   {1, "sort <var>", (*shell).sort},
		"seal":   {1, "seal <var>", (*shell).seal},
		"freeze": {1, "freeze <var>", (*shell).freeze},
		"shape":  {1, "shape <var>", (*shell).shape},
		"drop":   {1, "drop <var>", (*shell).drop},
		"gc":     {0, "gc", (*shell).collect},
		"stats":  {0, "stats", (*shell).stats},
	}
}

// exec runs one command line. Blank lines and # comments are ignored.
func (sh *shell) exec(line string) error {
	args, err := tokenize(line)
	if err != nil {
		return err
	}
	if len(args) == 0 || strings.HasPrefix(args[0], "#") {
		return nil
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q (try help)", args[0])
	}
	if len(args)-1 < cmd.args {
		return fmt.Errorf("usage: %s", cmd.usage)
	}
	return cmd.run(sh, args[1:])
}

// tokenize splits on spaces, keeping double-quoted tokens (with Go escapes)
// together. Quoted tokens keep their quotes so literals can tell them apart.
func tokenize(line string) ([]string, error) {
	var out []string
	for line = strings.TrimSpace(line); line != ""; line = strings.TrimSpace(line) {
		if line[0] != '"' {
			end := strings.IndexAny(line, " \t")
			if end < 0 {
				end = len(line)
			}
			out = append(out, line[:end])
			line = line[end:]
			continue
		}
		end := 1
		for ; end < len(line); end++ {
			if line[end] == '\\' {
				end++
				continue
			}
			if line[end] == '"' {
				break
			}
		}
		if end >= len(line) {
			return nil, fmt.Errorf("unterminated string in %q", line)
		}
		out = append(out, line[:end+1])
		line = line[end+1:]
	}
	return out, nil
}

func (sh *shell) bind(name string, v value.Value) {
	if h, ok := sh.vars[name]; ok {
		h.Release()
	}
	sh.vars[name] = sh.engine.Persistent(v)
}

func (sh *shell) lookup(name string) (value.Value, error) {
	h, ok := sh.vars[name]
	if !ok {
		return value.Undefined, fmt.Errorf("no variable %q", name)
	}
	return h.Get(), nil
}

func (sh *shell) object(name string) (*object.Object, error) {
	v, err := sh.lookup(name)
	if err != nil {
		return nil, err
	}
	o, ok := object.FromValue(v)
	if !ok {
		return nil, fmt.Errorf("%s is not an object", name)
	}
	return o, nil
}

func (sh *shell) str(name string) (*jsstring.String, error) {
	v, err := sh.lookup(name)
	if err != nil {
		return nil, err
	}
	st, ok := jsstring.FromValue(v)
	if !ok {
		return nil, fmt.Errorf("%s is not a string", name)
	}
	return st, nil
}

func (sh *shell) table(name string) (*ordered.Table, bool) {
	v, err := sh.lookup(name)
	if err != nil {
		return nil, false
	}
	t, ok := v.AsManaged().(*ordered.Table)
	return t, ok
}

// literal parses undefined, null, booleans, numbers, quoted strings and
// @var references.
func (sh *shell) literal(tok string) (value.Value, error) {
	switch tok {
	case "undefined":
		return value.Undefined, nil
	case "null":
		return value.Null, nil
	case "true":
		return value.True, nil
	case "false":
		return value.False, nil
	}
	if strings.HasPrefix(tok, "@") {
		return sh.lookup(tok[1:])
	}
	if strings.HasPrefix(tok, `"`) {
		raw, err := strconv.Unquote(tok)
		if err != nil {
			return value.Undefined, fmt.Errorf("bad string %s: %w", tok, err)
		}
		s, err := sh.engine.NewString(raw)
		if err != nil {
			return value.Undefined, err
		}
		return s.Value(), nil
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return value.Undefined, fmt.Errorf("cannot parse %q as a value", tok)
	}
	return value.Number(f), nil
}

func (sh *shell) key(tok string) object.Key {
	if raw, err := strconv.Unquote(tok); err == nil {
		return object.Name(raw)
	}
	return object.Name(tok)
}

func format(v value.Value) string {
	if s, ok := jsstring.FromValue(v); ok {
		return strconv.Quote(s.String())
	}
	return v.String()
}

func (sh *shell) printf(format string, args ...any) {
	fmt.Fprintf(sh.out, format, args...)
}

func (sh *shell) help(_ []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sh.printf("  %s\n", commands[name].usage)
	}
	return nil
}

func (sh *shell) newObject(args []string) error {
	o, err := sh.engine.NewObject()
	if err != nil {
		return err
	}
	sh.bind(args[0], o.Value())
	return nil
}

func (sh *shell) newArray(args []string) error {
	a, err := sh.engine.NewArray()
	if err != nil {
		return err
	}
	sh.bind(args[0], a.Value())
	return nil
}

func (sh *shell) newMap(args []string) error {
	t, err := sh.engine.NewOrderedTable()
	if err != nil {
		return err
	}
	sh.bind(args[0], value.FromManaged(t))
	return nil
}

func (sh *shell) newString(args []string) error {
	v, err := sh.literal(args[1])
	if err != nil {
		return err
	}
	if _, ok := jsstring.FromValue(v); !ok {
		return fmt.Errorf("%s is not a string literal", args[1])
	}
	sh.bind(args[0], v)
	return nil
}

func (sh *shell) concat(args []string) error {
	parts := make([]*jsstring.String, 2)
	for i, tok := range args[1:3] {
		v, err := sh.literal(tok)
		if err != nil {
			return err
		}
		s, ok := jsstring.FromValue(v)
		if !ok {
			return fmt.Errorf("%s is not a string", tok)
		}
		parts[i] = s
	}
	s, err := sh.engine.Concat(parts[0], parts[1])
	if err != nil {
		return err
	}
	sh.bind(args[0], s.Value())
	sh.printf("%s (length %d, depth %d)\n", format(s.Value()), s.Len(), s.Depth())
	return nil
}

// search prints the UTF-16 index of the first match of an ECMAScript
// pattern, -1 when there is none.
func (sh *shell) search(args []string) error {
	st, err := sh.str(args[0])
	if err != nil {
		return err
	}
	pattern := args[1]
	if raw, err := strconv.Unquote(pattern); err == nil {
		pattern = raw
	}
	at, err := jsstring.Search(st, pattern)
	if err != nil {
		return fmt.Errorf("bad pattern %s: %w", args[1], err)
	}
	sh.printf("%d\n", at)
	return nil
}

// utf16 prints the UTF-16LE bytes of a string.
func (sh *shell) utf16(args []string) error {
	st, err := sh.str(args[0])
	if err != nil {
		return err
	}
	b, err := jsstring.EncodeUTF16LE(st)
	if err != nil {
		return err
	}
	sh.printf("% x\n", b)
	return nil
}

// load binds the contents of a file, honouring a UTF-8 or UTF-16 byte
// order mark.
func (sh *shell) load(args []string) error {
	name := args[1]
	if raw, err := strconv.Unquote(name); err == nil {
		name = raw
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return err
	}
	decoded, err := jsstring.DecodeSniffed(data)
	if err != nil {
		return err
	}
	st, err := sh.engine.NewString(decoded.String())
	if err != nil {
		return err
	}
	sh.bind(args[0], st.Value())
	sh.printf("length %d\n", st.Len())
	return nil
}

func (sh *shell) set(args []string) error {
	v, err := sh.literal(args[2])
	if err != nil {
		return err
	}
	if t, ok := sh.table(args[0]); ok {
		k, err := sh.literal(args[1])
		if err != nil {
			return err
		}
		t.Set(k, v)
		return nil
	}
	o, err := sh.object(args[0])
	if err != nil {
		return err
	}
	ok, err := o.Put(sh.key(args[1]), v, nil)
	if err != nil {
		return err
	}
	if !ok {
		sh.printf("rejected\n")
	}
	return nil
}

func (sh *shell) get(args []string) error {
	if t, ok := sh.table(args[0]); ok {
		k, err := sh.literal(args[1])
		if err != nil {
			return err
		}
		v, found := t.Get(k)
		if !found {
			sh.printf("undefined\n")
			return nil
		}
		sh.printf("%s\n", format(v))
		return nil
	}
	o, err := sh.object(args[0])
	if err != nil {
		return err
	}
	v, err := o.Get(sh.key(args[1]), nil)
	if err != nil {
		return err
	}
	sh.printf("%s\n", format(v))
	return nil
}

func (sh *shell) del(args []string) error {
	if t, ok := sh.table(args[0]); ok {
		k, err := sh.literal(args[1])
		if err != nil {
			return err
		}
		sh.printf("%v\n", t.Remove(k))
		return nil
	}
	o, err := sh.object(args[0])
	if err != nil {
		return err
	}
	sh.printf("%v\n", o.Delete(sh.key(args[1])))
	return nil
}

func (sh *shell) keys(args []string) error {
	if t, ok := sh.table(args[0]); ok {
		var parts []string
		t.ForEach(func(k, v value.Value) {
			parts = append(parts, format(k)+" => "+format(v))
		})
		sh.printf("[%s]\n", strings.Join(parts, ", "))
		return nil
	}
	o, err := sh.object(args[0])
	if err != nil {
		return err
	}
	var names []string
	for _, k := range o.OwnKeys() {
		names = append(names, k.String())
	}
	sh.printf("[%s]\n", strings.Join(names, ", "))
	return nil
}

func (sh *shell) push(args []string) error {
	o, err := sh.object(args[0])
	if err != nil {
		return err
	}
	for _, tok := range args[1:] {
		v, err := sh.literal(tok)
		if err != nil {
			return err
		}
		ok, err := o.Push(v)
		if err != nil {
			return err
		}
		if !ok {
			sh.printf("rejected\n")
			return nil
		}
	}
	sh.printf("length %d\n", o.Length())
	return nil
}

// compareValues orders numbers numerically and everything else by its
// string form, numbers first.
func compareValues(a, b value.Value) (bool, error) {
	if a.IsNumber() && b.IsNumber() {
		return a.AsNumber() < b.AsNumber(), nil
	}
	if a.IsNumber() != b.IsNumber() {
		return a.IsNumber(), nil
	}
	return a.String() < b.String(), nil
}

func (sh *shell) sort(args []string) error {
	o, err := sh.object(args[0])
	if err != nil {
		return err
	}
	return o.Sort(arraystore.ComparatorFunc(compareValues))
}

func (sh *shell) seal(args []string) error {
	o, err := sh.object(args[0])
	if err != nil {
		return err
	}
	o.Seal()
	return nil
}

func (sh *shell) freeze(args []string) error {
	o, err := sh.object(args[0])
	if err != nil {
		return err
	}
	o.Freeze()
	return nil
}

func (sh *shell) shape(args []string) error {
	o, err := sh.object(args[0])
	if err != nil {
		return err
	}
	s := o.Shape()
	sh.printf("shape #%d class=%s slots=%d orphans=%d extensible=%v\n", s.ID(), s.Class(), s.Size(), s.Orphans(), s.Extensible())
	for _, m := range s.Members() {
		sh.printf("  %-12s slot %-3d %s\n", m.Name.String(), m.Slot, m.Attrs)
	}
	if el := o.Elements(); el != nil {
		sh.printf("  elements: %s, %d present, storage length %d\n", el.Mode(), el.Count(), el.Length())
	}
	return nil
}

func (sh *shell) drop(args []string) error {
	h, ok := sh.vars[args[0]]
	if !ok {
		return fmt.Errorf("no variable %q", args[0])
	}
	h.Release()
	delete(sh.vars, args[0])
	return nil
}

func (sh *shell) collect(_ []string) error {
	freed := sh.engine.Collect()
	sh.printf("freed %d\n", freed)
	return nil
}

func (sh *shell) stats(_ []string) error {
	sh.printf("%s\n", sh.engine.Stats())
	return nil
}

func (sh *shell) close() {
	for name, h := range sh.vars {
		h.Release()
		delete(sh.vars, name)
	}
}
