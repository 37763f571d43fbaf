package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/memorizu/memorizu/app/models"
	"github.com/memorizu/memorizu/internal/pkg/cache"
	"github.com/memorizu/memorizu/internal/pkg/database"
)

const (
	CacheKeyPagesTotal     = "statistics:pages:total"
	CacheKeyPagesPublished = "statistics:pages:published"
	CacheKeyPagesDaily     = "statistics:pages:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyUsers          = "statistics:users:total"
	CacheExpiration        = 30 * time.Minute
)

// StatisticsData holds the platform numbers shown on the landing page
type StatisticsData struct {
	TodayPages     int
	TotalUsers     int
	TotalPages     int
	PublishedPages int
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cache is older than the interval
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cache when it has gone stale
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Failed to update statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// ResetCacheUpdateTimer forces the next read to refresh the cache
func ResetCacheUpdateTimer() {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	lastCacheUpdate = time.Time{}
}

// UpdateStatisticsCache updates all statistics in the cache
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalPages int64
	if err := db.Model(&models.Page{}).Count(&totalPages).Error; err != nil {
		log.Printf("Error counting total pages: %v", err)
		return err
	}

	var publishedPages int64
	if err := db.Model(&models.Page{}).Where("published = ?", true).Count(&publishedPages).Error; err != nil {
		log.Printf("Error counting published pages: %v", err)
		return err
	}

	var todayPages int64
	today := time.Now().Format("2006-01-02")
	todayStart, _ := time.Parse("2006-01-02", today)
	todayEnd := todayStart.Add(24 * time.Hour)

	if err := db.Model(&models.Page{}).Where("created_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&todayPages).Error; err != nil {
		log.Printf("Error counting today's pages: %v", err)
		return err
	}

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		log.Printf("Error counting total users: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyPagesTotal, strconv.FormatInt(totalPages, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total pages: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyPagesPublished, strconv.FormatInt(publishedPages, 10), CacheExpiration); err != nil {
		log.Printf("Error caching published pages: %v", err)
		return err
	}

	dailyKey := fmt.Sprintf(CacheKeyPagesDaily, today)
	if err := cache.Set(dailyKey, strconv.FormatInt(todayPages, 10), CacheExpiration); err != nil {
		log.Printf("Error caching today's pages: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyUsers, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total users: %v", err)
		return err
	}

	return nil
}

// cachedCount reads a counter from cache, falling back to the given loader
func cachedCount(key string, load func() (int64, error)) int {
	val, err := cache.Get(key)
	if err == nil {
		count, perr := strconv.ParseInt(val, 10, 64)
		if perr == nil {
			return int(count)
		}
	}

	count, err := load()
	if err != nil {
		return 0
	}
	if err := cache.Set(key, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
		log.Printf("Error caching %s: %v", key, err)
	}
	return int(count)
}

// GetTotalPages returns the total number of pages from cache or database
func GetTotalPages() int {
	return cachedCount(CacheKeyPagesTotal, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.Page{}).Count(&count).Error
		return count, err
	})
}

// GetPublishedPages returns the number of published pages from cache or database
func GetPublishedPages() int {
	return cachedCount(CacheKeyPagesPublished, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.Page{}).Where("published = ?", true).Count(&count).Error
		return count, err
	})
}

// GetTodayPages returns the number of pages created today from cache or database
func GetTodayPages() int {
	today := time.Now().Format("2006-01-02")
	dailyKey := fmt.Sprintf(CacheKeyPagesDaily, today)

	return cachedCount(dailyKey, func() (int64, error) {
		var count int64
		todayStart, _ := time.Parse("2006-01-02", today)
		todayEnd := todayStart.Add(24 * time.Hour)
		err := database.GetDB().Model(&models.Page{}).Where("created_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&count).Error
		return count, err
	})
}

// GetTotalUsers returns the total number of users from cache or database
func GetTotalUsers() int {
	return cachedCount(CacheKeyUsers, func() (int64, error) {
		var count int64
		err := database.GetDB().Model(&models.User{}).Count(&count).Error
		return count, err
	})
}

// GetStatisticsData returns all statistics data as StatisticsData structure
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		TodayPages:     GetTodayPages(),
		TotalUsers:     GetTotalUsers(),
		TotalPages:     GetTotalPages(),
		PublishedPages: GetPublishedPages(),
	}
}
