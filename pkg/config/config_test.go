package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, "书院课程", cfg.Courses.OrganizationTypeName)
	assert.Equal(t, "Fall", cfg.Courses.Semester)
	assert.Equal(t, 2*time.Minute, cfg.Catalog.CacheTTL)
	assert.False(t, cfg.Catalog.CacheEnabled)
	assert.True(t, cfg.Advancer.Enabled)
	assert.Equal(t, time.Minute, cfg.Advancer.Interval)
	assert.Equal(t, 2, cfg.Advancer.Workers)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("STORE_DRIVER", "MEMORY")
	v.Set("COURSE_SEMESTER", " spring ")
	v.Set("COURSE_SEMESTER_YEAR", 2024)
	v.Set("COURSE_CATALOG_CACHE_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg := fromViper(v)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, "Spring", cfg.Courses.Semester)
	assert.Equal(t, 2024, cfg.Courses.Year)
	assert.Equal(t, 2*time.Minute, cfg.Catalog.CacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}
