package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

type Config struct {
	DNS struct {
		Nameservers    []string `json:"nameservers"`
		TimeoutSeconds uint32   `json:"timeout_seconds"`
		Retries        uint32   `json:"retries"`
	} `json:"dns"`

	Monitor struct {
		IncludeThreads uint32 `json:"include_threads"`
		DomainThreads  uint32 `json:"domain_threads"`
		AutoUpdate     bool   `json:"auto_update"`

		HourlyTimer Timer `json:"hourly_timer"`
		DailyTimer  Timer `json:"daily_timer"`
		WeeklyTimer Timer `json:"weekly_timer"`
	} `json:"monitor"`

	Flattening struct {
		ConsolidateCIDR   bool   `json:"consolidate_cidr"`
		PreserveOrder     bool   `json:"preserve_order"`
		IncludeSubdomains bool   `json:"include_subdomains"`
		MinCIDRGroupSize  uint32 `json:"min_cidr_group_size"`
		MaxIPsPerRecord   uint32 `json:"max_ips_per_record"`
		MaxDepth          uint32 `json:"max_depth"`
		SplitOversize     bool   `json:"split_oversize"`
	} `json:"flattening"`

	Classifier struct {
		ProfileCacheTimer Timer `json:"profile_cache_timer"`
	} `json:"classifier"`
}

type Timer struct {
	Days    uint32 `json:"days"`
	Hours   uint32 `json:"hours"`
	Minutes uint32 `json:"minutes"`
	Seconds uint32 `json:"seconds"`
}

const settingsFilePath = "data/settings.json"

var (
	//go:embed default_settings.json
	defaultConfig []byte

	configValue atomic.Value
	configMu    sync.Mutex

	InProductionMode bool
)

func init() {
	configValue.Store(Config{})
}

func ReadSettings() {
	data, err := os.ReadFile(settingsFilePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("Settings file not found, creating with default configuration")

			err = os.MkdirAll("data", os.ModePerm)
			if err != nil {
				log.Error("Error creating directory for settings file:", err)
				return
			}

			err = os.WriteFile(settingsFilePath, defaultConfig, os.ModePerm)
			if err != nil {
				log.Error("Error writing default settings file:", err)
				return
			}

			data = defaultConfig
		} else {
			log.Error("Error reading settings file:", err)
			return
		}
	}

	var newConfig Config
	err = json.Unmarshal(data, &newConfig)
	if err != nil {
		log.Error("Error unmarshalling settings file:", err)
		return
	}

	if err := applyConfigUpdate(newConfig, configUpdateOptions{source: "file"}); err != nil {
		log.Error("Error applying configuration from settings file:", err)
		return
	}

	log.Debug("Settings file loaded successfully")
}

func SetConfig(newConfig Config) {
	if err := applyConfigUpdate(newConfig, configUpdateOptions{persistToFile: true, broadcast: true, source: "local"}); err != nil {
		log.Error("Error applying configuration update:", err)
		return
	}

	log.Debug("Configuration updated and written to file successfully")
}

type configUpdateOptions struct {
	persistToFile bool
	broadcast     bool
	source        string
}

func applyConfigUpdate(newConfig Config, opts configUpdateOptions) error {
	configMu.Lock()
	defer configMu.Unlock()

	configValue.Store(newConfig)
	SetBetweenTime()

	var errs []error

	if opts.persistToFile {
		data, err := json.MarshalIndent(newConfig, "", "  ")
		if err != nil {
			log.Error("Error marshalling new configuration:", err)
			errs = append(errs, err)
		} else if err := os.WriteFile(settingsFilePath, data, os.ModePerm); err != nil {
			log.Error("Error writing new configuration to file:", err)
			errs = append(errs, err)
		}
	}

	if opts.broadcast {
		payload, err := json.Marshal(newConfig)
		if err != nil {
			log.Error("Error serializing configuration for broadcast:", err)
			errs = append(errs, err)
		} else if err := broadcastConfigUpdate(payload); err != nil {
			log.Error("Error broadcasting configuration update:", err)
			errs = append(errs, err)
		}
	}

	if opts.source != "" {
		log.Debug("Configuration applied", "source", opts.source)
	} else {
		log.Debug("Configuration applied")
	}

	return errors.Join(errs...)
}

func GetConfig() Config {
	// Get the current Config atomically
	return configValue.Load().(Config)
}

func SetProductionMode(productionMode bool) {
	InProductionMode = productionMode
}
