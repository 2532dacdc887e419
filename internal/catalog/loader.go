package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/GooferByte/wellness-rewards/internal/pricing"
	"github.com/goccy/go-yaml"
)

// rewardRow is the on-disk shape of a reward. Price stays untyped so that
// `price = "Free"` and `price = 300` both decode before validation.
type rewardRow struct {
	ID       string `toml:"id" yaml:"id" json:"id"`
	Title    string `toml:"title" yaml:"title" json:"title"`
	Provider string `toml:"provider" yaml:"provider" json:"provider"`
	Price    any    `toml:"price" yaml:"price" json:"price"`
}

type rewardFile struct {
	Rewards []rewardRow `toml:"rewards" yaml:"rewards" json:"rewards"`
}

// LoadRewards reads a reward catalog from a .toml, .yaml/.yml or .json file.
func LoadRewards(path string) (*RewardCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reward catalog: %w", err)
	}
	return ParseRewards(filepath.Ext(path), data)
}

// ParseRewards decodes catalog data in the format named by ext.
func ParseRewards(ext string, data []byte) (*RewardCatalog, error) {
	var file rewardFile
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "toml":
		if _, err := toml.Decode(string(data), &file); err != nil {
			return nil, fmt.Errorf("decode toml catalog: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("decode yaml catalog: %w", err)
		}
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&file); err != nil {
			return nil, fmt.Errorf("decode json catalog: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported reward catalog format %q", ext)
	}
	if len(file.Rewards) == 0 {
		return nil, fmt.Errorf("%w: catalog has no rewards", ErrInvalidReward)
	}

	rewards := make([]Reward, 0, len(file.Rewards))
	for _, row := range file.Rewards {
		price, err := pricing.Parse(row.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: reward %s: %v", ErrInvalidReward, row.ID, err)
		}
		rewards = append(rewards, Reward{
			ID:       strings.TrimSpace(row.ID),
			Title:    strings.TrimSpace(row.Title),
			Provider: strings.TrimSpace(row.Provider),
			Price:    price,
		})
	}
	return NewRewardCatalog(rewards)
}
