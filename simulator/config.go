/*
 * Atomledger Test Engine - a test harness for simulated ledger components
 *
 * Copyright Atomledger Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package simulator

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/atomledger/testengine/common"
)

// Config holds the economic parameters of a simulated ledger.
type Config struct {
	// FeePerInstruction is charged for every instruction of a transaction,
	// against the fee payer's locked budget.
	FeePerInstruction common.Decimal

	// FaucetBalance is the faucet's genesis holding of the base token.
	FaucetBalance common.Decimal

	// FreeAmount is handed out per faucet "free" call.
	FreeAmount common.Decimal

	// InitialAccountBalance funds every newly created account
	// from the faucet.
	InitialAccountBalance common.Decimal
}

// DefaultConfig returns the parameters used when no config file is given.
func DefaultConfig() Config {
	return Config{
		FeePerInstruction:     common.MustDecimal("0.1"),
		FaucetBalance:         common.MustDecimal("1000000000"),
		FreeAmount:            common.MustDecimal("10000"),
		InitialAccountBalance: common.MustDecimal("10000"),
	}
}

type configFile struct {
	FeePerInstruction     string `yaml:"fee_per_instruction"`
	FaucetBalance         string `yaml:"faucet_balance"`
	FreeAmount            string `yaml:"free_amount"`
	InitialAccountBalance string `yaml:"initial_account_balance"`
}

// LoadConfig reads a YAML config file. Omitted fields keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ParseConfig(data)
}

// ParseConfig parses a YAML config document.
// Omitted fields keep their defaults.
func ParseConfig(data []byte) (Config, error) {
	var file configFile
	err := yaml.Unmarshal(data, &file)
	if err != nil {
		return Config{}, err
	}

	config := DefaultConfig()

	for _, field := range []struct {
		literal string
		target  *common.Decimal
	}{
		{file.FeePerInstruction, &config.FeePerInstruction},
		{file.FaucetBalance, &config.FaucetBalance},
		{file.FreeAmount, &config.FreeAmount},
		{file.InitialAccountBalance, &config.InitialAccountBalance},
	} {
		if field.literal == "" {
			continue
		}
		value, err := common.NewDecimal(field.literal)
		if err != nil {
			return Config{}, err
		}
		*field.target = value
	}

	return config, nil
}
