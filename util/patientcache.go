package util

import (
	"container/list"
	"os"
	"strconv"
	"sync"

	"gorm.io/gorm"
)

// LRU cache for patientUniqueID -> display name, used when decorating
// comparison and history listings without re-joining the patients table.
type patientEntry struct {
	patientUniqueID string
	name            string
}

type patientLRU struct {
	mu       sync.Mutex
	ll       *list.List
	cache    map[string]*list.Element
	capacity int
}

var patientCache *patientLRU

// InitPatientNameCache initializes the LRU cache with given capacity.
// If capacity <= 0, a default of 1000 is used.
func InitPatientNameCache(capacity int) {
	if capacity <= 0 {
		capacity = 1000
	}
	patientCache = &patientLRU{
		ll:       list.New(),
		cache:    make(map[string]*list.Element),
		capacity: capacity,
	}
}

// PatientNameCacheGet returns the display name and true if present in cache.
func PatientNameCacheGet(patientUniqueID string) (string, bool) {
	if patientCache == nil {
		return "", false
	}
	patientCache.mu.Lock()
	defer patientCache.mu.Unlock()
	if ele, ok := patientCache.cache[patientUniqueID]; ok {
		patientCache.ll.MoveToFront(ele)
		if e, ok := ele.Value.(patientEntry); ok {
			return e.name, true
		}
	}
	return "", false
}

// PatientNameCacheSet sets the display name for a patient in the cache.
func PatientNameCacheSet(patientUniqueID, name string) {
	if patientCache == nil {
		return
	}
	patientCache.mu.Lock()
	defer patientCache.mu.Unlock()
	if ele, ok := patientCache.cache[patientUniqueID]; ok {
		patientCache.ll.MoveToFront(ele)
		ele.Value = patientEntry{patientUniqueID: patientUniqueID, name: name}
		return
	}
	ele := patientCache.ll.PushFront(patientEntry{patientUniqueID: patientUniqueID, name: name})
	patientCache.cache[patientUniqueID] = ele
	if patientCache.ll.Len() > patientCache.capacity {
		// evict least recently used
		tail := patientCache.ll.Back()
		if tail != nil {
			if e, ok := tail.Value.(patientEntry); ok {
				delete(patientCache.cache, e.patientUniqueID)
			}
			patientCache.ll.Remove(tail)
		}
	}
}

// GetPatientName returns the display name for a patient using the cache,
// falling back to the DB. If found in DB, caches the result.
func GetPatientName(db *gorm.DB, patientUniqueID string) string {
	if patientUniqueID == "" {
		return ""
	}
	if name, ok := PatientNameCacheGet(patientUniqueID); ok {
		return name
	}
	if db == nil {
		return ""
	}
	var p struct{ FullName string }
	if err := db.Table("patients").Select("full_name").Where("patient_unique_id = ?", patientUniqueID).Take(&p).Error; err == nil {
		if p.FullName != "" {
			PatientNameCacheSet(patientUniqueID, p.FullName)
		}
		return p.FullName
	}
	return ""
}

// InitPatientNameCacheFromEnv initializes the cache using the env var PATIENT_NAME_CACHE_SIZE
func InitPatientNameCacheFromEnv() {
	sizeStr := os.Getenv("PATIENT_NAME_CACHE_SIZE")
	if sizeStr == "" {
		InitPatientNameCache(0)
		return
	}
	if n, err := strconv.Atoi(sizeStr); err == nil {
		InitPatientNameCache(n)
		return
	}
	InitPatientNameCache(0)
}
