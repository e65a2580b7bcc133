/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage holds the file plumbing shared by jobs and presets: fsynced copies,
// atomic replace-by-rename writes and board companion handling.
// A board file travels with its .kicad_pro and .kicad_prl companions; the primary is
// required, companions are copied when present. Copies are fingerprinted with BLAKE3.
package storage
