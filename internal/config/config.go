package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"tx-coordinator/internal/pkg/errorc"
)

// Load reads the TOML configuration file into a DbsConfig.
//
// The file holds a [[databases]] array of {schema, secret} tables. Repeated
// schema values resolve to the first occurrence in document order; later
// duplicates are silently discarded.
func Load(cfgFile string) (DbsConfig, error) {
	v := viper.New()
	v.SetConfigFile(cfgFile)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		return nil, errorc.Config(fmt.Errorf("read config %s: %w", cfgFile, err))
	}

	var file fileConfig
	if err := v.Unmarshal(&file); err != nil {
		return nil, errorc.Config(fmt.Errorf("unmarshal config %s: %w", cfgFile, err))
	}

	validate := validator.New()

	dbs := make(DbsConfig, len(file.Databases))
	for _, db := range file.Databases {
		if err := validate.Struct(db); err != nil {
			return nil, errorc.Config(fmt.Errorf("invalid database entry for schema %q: %w", db.Schema, err))
		}
		if _, ok := dbs[db.Schema]; ok {
			continue
		}
		dbs[db.Schema] = db
	}

	return dbs, nil
}
