package slub

import "testing"

import "github.com/bnclabs/goslub/api"

func TestDefaultsettings(t *testing.T) {
	setts := Defaultsettings()
	if x := setts.Int64("pagesperslab"); x != api.Pagesperslab {
		t.Errorf("expected %v, got %v", api.Pagesperslab, x)
	}
	if x := setts.Int64("capacity"); x < 0 {
		t.Errorf("negative capacity %v", x)
	}
	total, used, free := getsysmem()
	if total == 0 {
		t.Errorf("expected non zero system memory")
	} else if used > total || free > total {
		t.Errorf("inconsistent memory %v %v %v", total, used, free)
	}
}
