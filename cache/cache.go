package cache

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/tywin1104/mc-dashboard/aggregate"
	"github.com/tywin1104/mc-dashboard/types"
)

const (
	allRequestKey = "AllRequests"
	reportKey     = "DashboardReport"
)

// ErrNotCached is returned when the requested key has not been written yet
var ErrNotCached = errors.New("key does not exist")

// Service represents a redis cache that holds the latest dashboard report
// and the snapshot it was computed from
type Service struct {
	pool *redis.Pool
}

// NewPool creates a redis connection pool for addr
func NewPool(addr string) *redis.Pool {
	return &redis.Pool{
		MaxIdle:     10,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
}

// NewService create a caching service on top of pool
func NewService(pool *redis.Pool) *Service {
	return &Service{pool: pool}
}

// Ping verifies the cache is reachable
func (svc *Service) Ping() error {
	conn := svc.pool.Get()
	defer conn.Close()
	_, err := conn.Do("PING")
	return err
}

// Close releases the pool
func (svc *Service) Close() error {
	return svc.pool.Close()
}

// SetReport stores the report JSON
func (svc *Service) SetReport(report aggregate.Report) error {
	b, err := json.Marshal(report)
	if err != nil {
		return err
	}
	conn := svc.pool.Get()
	defer conn.Close()
	_, err = conn.Do("SET", reportKey, b)
	return err
}

// GetReport get the cached report if exists
func (svc *Service) GetReport() (aggregate.Report, error) {
	var report aggregate.Report
	if err := svc.getJSON(reportKey, &report); err != nil {
		return aggregate.Report{}, err
	}
	return report, nil
}

// SetAllRequests stores the snapshot the report was computed from
func (svc *Service) SetAllRequests(requests []types.WhitelistRequest) error {
	b, err := json.Marshal(requests)
	if err != nil {
		return err
	}
	conn := svc.pool.Get()
	defer conn.Close()
	_, err = conn.Do("SET", allRequestKey, b)
	return err
}

// GetAllRequests get the cached snapshot of all requests if exists
func (svc *Service) GetAllRequests() ([]types.WhitelistRequest, error) {
	var requests []types.WhitelistRequest
	if err := svc.getJSON(allRequestKey, &requests); err != nil {
		return nil, err
	}
	return requests, nil
}

func (svc *Service) getJSON(key string, v interface{}) error {
	conn := svc.pool.Get()
	defer conn.Close()
	b, err := redis.Bytes(conn.Do("GET", key))
	if err == redis.ErrNil {
		return ErrNotCached
	} else if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}
