// Copyright 2026 Statekit Authors
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

package constants

const (
	// DefaultManagerName is the name used for a Manager when the caller does
	// not provide one. It shows up in logs and metric labels.
	DefaultManagerName = "core"

	// DefaultHistoryCapacity is the number of transition records a Tracker
	// keeps before evicting the oldest entry.
	DefaultHistoryCapacity = 10
)

const (
	// DefaultMetricsPort is the port the Prometheus metrics server listens on
	// when metrics are enabled and no port is configured.
	DefaultMetricsPort = 8061
)

const (
	// DefaultAppVersion is the version reported by local development builds.
	// Release builds override it via ldflags.
	DefaultAppVersion = "0.0.0-dev"

	// DefaultDevelopmentEnvironment is the sentry environment for prerelease builds.
	DefaultDevelopmentEnvironment = "development"

	// ProductionEnvironment is the sentry environment for release builds.
	ProductionEnvironment = "production"
)
