package config

import (
	"sync"
)

// RateConfig holds the fallback rate-limit values used when no route policy
// matches a request.
type RateConfig struct {
	DefaultRateLimit float64 `json:"default_rate"`
	DefaultBurst     int     `json:"default_burst"`
}

// DynamicConfigManager manages thread-safe config updates at runtime.
type DynamicConfigManager struct {
	mu   sync.RWMutex
	rate RateConfig
}

func NewDynamicConfigManager() *DynamicConfigManager {
	return &DynamicConfigManager{
		rate: RateConfig{
			DefaultRateLimit: 1.0,
			DefaultBurst:     5,
		},
	}
}

func (m *DynamicConfigManager) GetRate() RateConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rate
}

func (m *DynamicConfigManager) UpdateRate(newRate RateConfig) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rate = newRate
}
