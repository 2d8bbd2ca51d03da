// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import "sigs.k8s.io/yaml"

// yamlUnmarshal decodes a -config file into dst via sigs.k8s.io/yaml,
// which round-trips through encoding/json so dst can use ordinary
// `json` struct tags.
func yamlUnmarshal(data []byte, dst any) error {
	return yaml.Unmarshal(data, dst)
}
