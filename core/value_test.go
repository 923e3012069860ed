package core

import (
	"encoding/json"
	"testing"
)

func TestValue_KindsAndAccessors(t *testing.T) {
	if s, ok := StringValue("hi").AsString(); !ok || s != "hi" {
		t.Errorf("AsString failed: %q %v", s, ok)
	}
	if n, ok := NumberValue(4.5).AsNumber(); !ok || n != 4.5 {
		t.Errorf("AsNumber failed: %v %v", n, ok)
	}
	if b, ok := BoolValue(true).AsBool(); !ok || !b {
		t.Errorf("AsBool failed: %v %v", b, ok)
	}

	list, ok := ListValue(StringValue("a"), NumberValue(1)).AsList()
	if !ok || len(list) != 2 {
		t.Fatalf("AsList failed: %v %v", list, ok)
	}

	m, ok := MapValue(P("k", StringValue("v"))).AsMap()
	if !ok || len(m) != 1 || m[0].Key != "k" {
		t.Fatalf("AsMap failed: %v %v", m, ok)
	}

	// accessors reject mismatched kinds
	if _, ok := StringValue("hi").AsNumber(); ok {
		t.Error("AsNumber accepted a string value")
	}
	if _, ok := NumberValue(1).AsList(); ok {
		t.Error("AsList accepted a number value")
	}
}

func TestValue_Interface(t *testing.T) {
	v := MapValue(
		P("name", StringValue("core")),
		P("count", NumberValue(3)),
		P("flags", ListValue(BoolValue(true), BoolValue(false))),
	)

	got, ok := v.Interface().(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", v.Interface())
	}
	if got["name"] != "core" || got["count"] != 3.0 {
		t.Errorf("scalar fields wrong: %+v", got)
	}
	flags, ok := got["flags"].([]any)
	if !ok || len(flags) != 2 || flags[0] != true {
		t.Errorf("list field wrong: %+v", got["flags"])
	}
}

func TestValue_MarshalJSONKeepsMapOrder(t *testing.T) {
	v := MapValue(
		P("zebra", NumberValue(1)),
		P("alpha", NumberValue(2)),
	)

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"zebra":1,"alpha":2}` {
		t.Errorf("map order not preserved: %s", data)
	}
}

func TestParams_GetFirstEntryWins(t *testing.T) {
	p := Params{
		P("k", StringValue("first")),
		P("k", StringValue("second")),
	}

	v, ok := p.Get("k")
	if !ok || v.String() != "first" {
		t.Errorf("expected first entry, got %v %v", v, ok)
	}
	if _, ok := p.Get("missing"); ok {
		t.Error("Get reported a missing key as present")
	}
}

func TestParams_CloneIsIndependent(t *testing.T) {
	p := Params{P("k", StringValue("a"))}
	clone := p.Clone()
	p[0] = P("k", StringValue("b"))

	if v, _ := clone.Get("k"); v.String() != "a" {
		t.Errorf("clone shares backing array with original: %v", v)
	}
	if Params(nil).Clone() != nil {
		t.Error("cloning nil params should stay nil")
	}
}

func TestParams_MarshalJSON(t *testing.T) {
	p := Params{
		P("b", StringValue("x")),
		P("a", ListValue(NumberValue(1), NumberValue(2))),
	}

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"b":"x","a":[1,2]}` {
		t.Errorf("unexpected JSON: %s", data)
	}
}
