package canonical

import "testing"

func TestKeysAreSorted(t *testing.T) {
	got, err := Canonicalize([]byte(`{"b":1,"a":2}`))
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if string(got) != `{"a":2,"b":1}` {
		t.Fatalf("got %s", got)
	}
}

func TestNullFieldsDropped(t *testing.T) {
	got, err := Canonicalize([]byte(`{"a":1,"b":null}`))
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Fatalf("got %s", got)
	}
}

func TestNoInsignificantWhitespace(t *testing.T) {
	got, err := Canonicalize([]byte(`{ "a" : [1, 2,  3] }`))
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if string(got) != `{"a":[1,2,3]}` {
		t.Fatalf("got %s", got)
	}
}

func TestIntegerVsFloat(t *testing.T) {
	got, err := Canonicalize([]byte(`{"a":1.50,"b":3}`))
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if string(got) != `{"a":1.5,"b":3}` {
		t.Fatalf("got %s", got)
	}
}

func TestIdempotent(t *testing.T) {
	first, err := Canonicalize([]byte(`{"z":1,"a":{"y":2,"x":null}}`))
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	second, err := Canonicalize(first)
	if err != nil {
		t.Fatalf("Canonicalize(second pass): %v", err)
	}
	if string(first) != string(second) {
		t.Fatalf("not idempotent: %s != %s", first, second)
	}
}

func TestETagDeterministic(t *testing.T) {
	a, err := Canonicalize([]byte(`{"id":"x","idShort":null}`))
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	b, err := Canonicalize([]byte(`{"idShort":null,"id":"x"}`))
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if ETag(a) != ETag(b) {
		t.Fatalf("ETag must be independent of key order")
	}
	if len(ETag(a)) != 32 {
		t.Fatalf("ETag must be 16 bytes hex-encoded (32 chars), got %d", len(ETag(a)))
	}
}
