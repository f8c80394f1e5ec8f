// Copyright 2026 Vocalia Labs
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


// Package search executes retrieval queries over the utterance store.
//
// Three modes are supported. Semantic mode embeds the query and ranks by
// cosine similarity. Lexical mode ranks by term overlap against the
// candidate text. Hybrid mode, the default, retrieves a widened candidate
// set through both signals, normalizes each to [0,1] within its own set,
// and fuses them with a weighted sum (0.7 semantic, 0.3 lexical by
// default). Results never exceed the query's TopK and an empty result is
// not an error.
package search
