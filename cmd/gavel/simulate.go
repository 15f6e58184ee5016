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

package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/blinklabs-io/gavel/internal/node"
	"github.com/spf13/cobra"
)

func simulateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the reference governance scenario against an in-memory node",
		Run: func(cmd *cobra.Command, args []string) {
			// Scenario output goes to stdout, logs only with --debug
			logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
			if globalFlags.debug {
				logger = commonRun()
			}
			if err := node.Simulate(cmd.Context(), logger, os.Stdout); err != nil {
				slog.Error(err.Error())
				os.Exit(1)
			}
		},
	}
	return cmd
}
