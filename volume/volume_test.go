package volume

import "testing"

func TestList(t *testing.T) {
	volumes, err := List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(volumes) == 0 {
		t.Fatal("expected at least one volume")
	}
	for _, v := range volumes {
		if v.Path == "" {
			t.Fatalf("volume with empty mountpoint: %+v", v)
		}
	}
}

func TestFind(t *testing.T) {
	v, ok := Find("/")
	if !ok {
		t.Skip("no volume covers /")
	}
	if v.Path == "" {
		t.Fatal("matched volume has no mountpoint")
	}
}

func TestMediaTypeForNeverPanics(t *testing.T) {
	media := MediaTypeFor("/")
	switch media {
	case MediaSSD, MediaHDD, MediaUnknown:
	default:
		t.Fatalf("unexpected media type: %v", media)
	}
}

func TestMediaTypeString(t *testing.T) {
	if MediaSSD.String() != "ssd" || MediaHDD.String() != "hdd" || MediaUnknown.String() != "unknown" {
		t.Fatal("unexpected media type names")
	}
}

func TestParseMediaType(t *testing.T) {
	if m, ok := ParseMediaType("SSD"); !ok || m != MediaSSD {
		t.Fatal("expected ssd override")
	}
	if m, ok := ParseMediaType("hdd"); !ok || m != MediaHDD {
		t.Fatal("expected hdd override")
	}
	if _, ok := ParseMediaType("auto"); ok {
		t.Fatal("auto should not be a concrete media type")
	}
}
