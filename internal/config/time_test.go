package config

import (
	"testing"
	"time"
)

func TestCalculateMillisecondsOfCheckingPeriod(t *testing.T) {
	timer := Timer{Days: 1, Hours: 2, Minutes: 3, Seconds: 4}
	want := uint64((24*60*60 + 2*60*60 + 3*60 + 4) * 1000)

	if got := CalculateMillisecondsOfCheckingPeriod(timer); got != want {
		t.Fatalf("CalculateMillisecondsOfCheckingPeriod returned %d, want %d", got, want)
	}
}

func TestCalculateBetweenTime(t *testing.T) {
	t.Run("enforces minimum interval", func(t *testing.T) {
		if got := CalculateBetweenTime(Timer{}); got != time.Second {
			t.Fatalf("CalculateBetweenTime returned %s, want 1s", got)
		}
	})

	t.Run("returns configured duration", func(t *testing.T) {
		if got := CalculateBetweenTime(Timer{Minutes: 1, Seconds: 30}); got != 90*time.Second {
			t.Fatalf("CalculateBetweenTime returned %s, want 1m30s", got)
		}
	})
}

func TestSetBetweenTime(t *testing.T) {
	origCfg := GetConfig()
	origHourly := GetHourlyCheckInterval()
	origDaily := GetDailyCheckInterval()
	origWeekly := GetWeeklyCheckInterval()
	origCache := GetProfileCacheInterval()
	origHourlyListeners := hourlyCheckListeners
	origDailyListeners := dailyCheckListeners
	origWeeklyListeners := weeklyCheckListeners

	t.Cleanup(func() {
		configValue.Store(origCfg)
		hourlyCheckInterval.Store(origHourly)
		dailyCheckInterval.Store(origDaily)
		weeklyCheckInterval.Store(origWeekly)
		profileCacheInterval.Store(origCache)
		hourlyCheckListeners = origHourlyListeners
		dailyCheckListeners = origDailyListeners
		weeklyCheckListeners = origWeeklyListeners
	})

	testCfg := Config{}
	testCfg.Monitor.HourlyTimer = Timer{Minutes: 30}
	testCfg.Monitor.DailyTimer = Timer{Hours: 12}
	testCfg.Monitor.WeeklyTimer = Timer{Days: 3}
	testCfg.Classifier.ProfileCacheTimer = Timer{Minutes: 15}

	configValue.Store(testCfg)
	hourlyCheckListeners = nil
	dailyCheckListeners = nil
	weeklyCheckListeners = nil

	SetBetweenTime()

	if got := GetHourlyCheckInterval(); got != 30*time.Minute {
		t.Fatalf("GetHourlyCheckInterval returned %s, want 30m", got)
	}
	if got := GetDailyCheckInterval(); got != 12*time.Hour {
		t.Fatalf("GetDailyCheckInterval returned %s, want 12h", got)
	}
	if got := GetWeeklyCheckInterval(); got != 3*24*time.Hour {
		t.Fatalf("GetWeeklyCheckInterval returned %s, want 72h", got)
	}
	if got := GetProfileCacheInterval(); got != 15*time.Minute {
		t.Fatalf("GetProfileCacheInterval returned %s, want 15m", got)
	}
}

func TestZeroTimerFallsBackToDefaults(t *testing.T) {
	origCfg := GetConfig()
	origHourly := GetHourlyCheckInterval()
	origDaily := GetDailyCheckInterval()
	origWeekly := GetWeeklyCheckInterval()

	t.Cleanup(func() {
		configValue.Store(origCfg)
		hourlyCheckInterval.Store(origHourly)
		dailyCheckInterval.Store(origDaily)
		weeklyCheckInterval.Store(origWeekly)
	})

	configValue.Store(Config{})
	SetBetweenTime()

	if got := GetHourlyCheckInterval(); got != time.Hour {
		t.Fatalf("GetHourlyCheckInterval returned %s, want 1h", got)
	}
	if got := GetDailyCheckInterval(); got != 24*time.Hour {
		t.Fatalf("GetDailyCheckInterval returned %s, want 24h", got)
	}
	if got := GetWeeklyCheckInterval(); got != 7*24*time.Hour {
		t.Fatalf("GetWeeklyCheckInterval returned %s, want 168h", got)
	}
}
