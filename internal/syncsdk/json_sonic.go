//go:build sonic

package syncsdk

import "github.com/bytedance/sonic"

var jsonMarshal = sonic.Marshal
var jsonUnmarshal = sonic.Unmarshal
