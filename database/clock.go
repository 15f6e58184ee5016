// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package database

import (
	"fmt"
	"strconv"
)

const heightSettingKey = "clock_height"

// SaveHeight records the last observed clock height
func (d *Database) SaveHeight(height uint64) error {
	return NewMetadataOnlyTxn(d, true).Do(func(txn *Txn) error {
		return d.metadata.SetSetting(
			heightSettingKey,
			strconv.FormatUint(height, 10),
			txn.Metadata(),
		)
	})
}

// LoadHeight returns the last recorded clock height. The boolean is false
// if no height was ever recorded
func (d *Database) LoadHeight() (uint64, bool, error) {
	val, ok, err := d.metadata.GetSetting(heightSettingKey, nil)
	if err != nil || !ok {
		return 0, false, err
	}
	height, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", heightSettingKey, err)
	}
	return height, true, nil
}
