package rpcthrottle_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/adamwoolhether/rpcthrottle"
	"github.com/adamwoolhether/rpcthrottle/retry"
	"github.com/adamwoolhether/rpcthrottle/throttle"
	"github.com/adamwoolhether/rpcthrottle/transport"
)

func ExampleBuilder_HTTP() {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"jsonrpc":"2.0","id":1,"result":"0x1b4"}`)
	}))
	defer ts.Close()

	jitter := throttle.JitterUpTo(5 * time.Millisecond)

	throttled, err := throttle.NewLayer(10, &jitter)
	if err != nil {
		fmt.Println("throttle error:", err)
		return
	}

	retried, err := retry.NewLayer(10, 300*time.Millisecond)
	if err != nil {
		fmt.Println("retry error:", err)
		return
	}

	c, err := rpcthrottle.NewBuilder().
		Layer(throttled).
		Layer(retried).
		HTTP(ts.URL, transport.WithTimeout(5*time.Second))
	if err != nil {
		fmt.Println("build error:", err)
		return
	}

	var head string
	if err := c.Call(context.Background(), "eth_blockNumber", nil, &head); err != nil {
		fmt.Println("call error:", err)
		return
	}

	fmt.Println(head)
	// Output: 0x1b4
}
