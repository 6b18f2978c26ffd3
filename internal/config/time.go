package config

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultHourlyCheckInterval  = time.Hour
	defaultDailyCheckInterval   = 24 * time.Hour
	defaultWeeklyCheckInterval  = 7 * 24 * time.Hour
	defaultProfileCacheInterval = time.Hour
)

var (
	hourlyCheckInterval  atomic.Value
	dailyCheckInterval   atomic.Value
	weeklyCheckInterval  atomic.Value
	profileCacheInterval atomic.Value
	hourlyCheckListeners []chan time.Duration
	dailyCheckListeners  []chan time.Duration
	weeklyCheckListeners []chan time.Duration
	listenersMu          sync.Mutex
)

func init() {
	hourlyCheckInterval.Store(defaultHourlyCheckInterval)
	dailyCheckInterval.Store(defaultDailyCheckInterval)
	weeklyCheckInterval.Store(defaultWeeklyCheckInterval)
	profileCacheInterval.Store(defaultProfileCacheInterval)
}

func SetBetweenTime() {
	cfg := GetConfig()
	setHourlyCheckInterval(calculateInterval(cfg.Monitor.HourlyTimer, defaultHourlyCheckInterval))
	setDailyCheckInterval(calculateInterval(cfg.Monitor.DailyTimer, defaultDailyCheckInterval))
	setWeeklyCheckInterval(calculateInterval(cfg.Monitor.WeeklyTimer, defaultWeeklyCheckInterval))
	profileCacheInterval.Store(calculateInterval(cfg.Classifier.ProfileCacheTimer, defaultProfileCacheInterval))
}

func calculateInterval(timer Timer, fallback time.Duration) time.Duration {
	if timer.Days == 0 && timer.Hours == 0 && timer.Minutes == 0 && timer.Seconds == 0 {
		return fallback
	}
	return CalculateBetweenTime(timer)
}

func CalculateBetweenTime(timer Timer) time.Duration {
	intervalMs := CalculateMillisecondsOfCheckingPeriod(timer)

	// Enforce minimum interval (e.g., 1 second)
	minInterval := uint64(1000)
	if intervalMs < minInterval {
		intervalMs = minInterval
	}

	return time.Duration(intervalMs) * time.Millisecond
}

func CalculateMillisecondsOfCheckingPeriod(timer Timer) uint64 {
	// Calculate total duration in milliseconds
	return uint64(timer.Days)*24*60*60*1000 +
		uint64(timer.Hours)*60*60*1000 +
		uint64(timer.Minutes)*60*1000 +
		uint64(timer.Seconds)*1000
}

func GetHourlyCheckInterval() time.Duration {
	return hourlyCheckInterval.Load().(time.Duration)
}

func GetDailyCheckInterval() time.Duration {
	return dailyCheckInterval.Load().(time.Duration)
}

func GetWeeklyCheckInterval() time.Duration {
	return weeklyCheckInterval.Load().(time.Duration)
}

func GetProfileCacheInterval() time.Duration {
	return profileCacheInterval.Load().(time.Duration)
}

func HourlyCheckIntervalUpdates() <-chan time.Duration {
	ch := make(chan time.Duration, 1)
	listenersMu.Lock()
	hourlyCheckListeners = append(hourlyCheckListeners, ch)
	listenersMu.Unlock()

	ch <- GetHourlyCheckInterval()
	return ch
}

func DailyCheckIntervalUpdates() <-chan time.Duration {
	ch := make(chan time.Duration, 1)
	listenersMu.Lock()
	dailyCheckListeners = append(dailyCheckListeners, ch)
	listenersMu.Unlock()

	ch <- GetDailyCheckInterval()
	return ch
}

func WeeklyCheckIntervalUpdates() <-chan time.Duration {
	ch := make(chan time.Duration, 1)
	listenersMu.Lock()
	weeklyCheckListeners = append(weeklyCheckListeners, ch)
	listenersMu.Unlock()

	ch <- GetWeeklyCheckInterval()
	return ch
}

func setHourlyCheckInterval(interval time.Duration) {
	if interval <= 0 {
		interval = defaultHourlyCheckInterval
	}

	current := GetHourlyCheckInterval()
	if current == interval {
		return
	}

	hourlyCheckInterval.Store(interval)
	notifyListeners(hourlyCheckListeners, interval)
}

func setDailyCheckInterval(interval time.Duration) {
	if interval <= 0 {
		interval = defaultDailyCheckInterval
	}

	current := GetDailyCheckInterval()
	if current == interval {
		return
	}

	dailyCheckInterval.Store(interval)
	notifyListeners(dailyCheckListeners, interval)
}

func setWeeklyCheckInterval(interval time.Duration) {
	if interval <= 0 {
		interval = defaultWeeklyCheckInterval
	}

	current := GetWeeklyCheckInterval()
	if current == interval {
		return
	}

	weeklyCheckInterval.Store(interval)
	notifyListeners(weeklyCheckListeners, interval)
}

func notifyListeners(listeners []chan time.Duration, interval time.Duration) {
	listenersMu.Lock()
	defer listenersMu.Unlock()
	for _, ch := range listeners {
		select {
		case ch <- interval:
		default:
		}
	}
}
