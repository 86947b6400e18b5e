package util

import "testing"

func TestInitGeoIPEmptyPathIsNoop(t *testing.T) {
	t.Setenv("GEOIP_DB_PATH", "")
	if err := InitGeoIP(""); err != nil {
		t.Errorf("expected no error with empty path, got %v", err)
	}
}

func TestInitGeoIPNonExistentFile(t *testing.T) {
	if err := InitGeoIP("/nonexistent/path/to/geoip.mmdb"); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestGetIPLocationEmptyIP(t *testing.T) {
	city, country := GetIPLocation("")
	if city != "" || country != "" {
		t.Errorf("expected empty location for empty IP, got %q/%q", city, country)
	}
}

func TestGetIPLocationPrivateIPs(t *testing.T) {
	for _, ip := range []string{
		"127.0.0.1",
		"::1",
		"10.0.0.1",
		"10.255.255.255",
		"192.168.1.1",
		"192.168.0.0",
		"::",
		"::ffff",
	} {
		city, country := GetIPLocation(ip)
		if city != "" || country != "" {
			t.Errorf("expected empty location for private IP %s, got %q/%q", ip, city, country)
		}
	}
}

func TestGetIPLocationWithoutDB(t *testing.T) {
	geoipDB = nil
	geoipCache = nil

	city, country := GetIPLocation("8.8.8.8")
	if city != "" || country != "" {
		t.Errorf("expected empty location when DB is nil, got %q/%q", city, country)
	}
}

func TestGetIPLocationInvalidIP(t *testing.T) {
	geoipDB = nil
	geoipCache = nil

	city, country := GetIPLocation("not-an-ip")
	if city != "" || country != "" {
		t.Errorf("expected empty location for invalid IP, got %q/%q", city, country)
	}
}

func TestGetGeoIPCacheMetrics(t *testing.T) {
	geoipDB = nil
	geoipCache = nil

	_, missesBefore, size := GetGeoIPCacheMetrics()
	if size != 0 {
		t.Errorf("expected size 0 when cache is nil, got %d", size)
	}

	// A lookup that bypasses the cache still counts as a miss.
	GetIPLocation("8.8.8.8")
	_, missesAfter, _ := GetGeoIPCacheMetrics()
	if missesAfter != missesBefore+1 {
		t.Errorf("expected miss counter to advance from %d, got %d", missesBefore, missesAfter)
	}
}

func TestCloseGeoIPWithoutDB(t *testing.T) {
	geoipDB = nil
	CloseGeoIP()
	if geoipDB != nil {
		t.Error("expected geoipDB to remain nil after CloseGeoIP")
	}
}
