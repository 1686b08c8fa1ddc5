package checksum

import "testing"

func TestSum(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := Sum([]byte("abc")); got != want {
		t.Errorf("Sum = %s, want %s", got, want)
	}
}

func TestChanged(t *testing.T) {
	sum, changed := Changed("", []byte("a,b\n1,2\n"))
	if !changed || sum == "" {
		t.Fatalf("first sight: changed=%v sum=%q", changed, sum)
	}
	if _, changed := Changed(sum, []byte("a,b\n1,2\n")); changed {
		t.Error("same content reported as changed")
	}
	if _, changed := Changed(sum, []byte("a,b\n1,3\n")); !changed {
		t.Error("new content reported as unchanged")
	}
}
