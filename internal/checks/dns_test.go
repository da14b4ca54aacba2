package checks

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startDNSServer serves fixed answers for a few names on a loopback UDP port.
func startDNSServer(t *testing.T) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
		m := new(dns.Msg)
		m.SetReply(r)
		q := r.Question[0]

		switch {
		case q.Name == "shop.example.com." && q.Qtype == dns.TypeA:
			rr, _ := dns.NewRR("shop.example.com. 300 IN A 192.0.2.10")
			m.Answer = append(m.Answer, rr)
		case q.Name == "v6.example.com." && q.Qtype == dns.TypeAAAA:
			rr, _ := dns.NewRR("v6.example.com. 300 IN AAAA 2001:db8::1")
			m.Answer = append(m.Answer, rr)
		case q.Name == "missing.example.com.":
			m.Rcode = dns.RcodeNameError
		}
		_ = w.WriteMsg(m)
	})

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	<-started

	t.Cleanup(func() { _ = srv.Shutdown() })
	return pc.LocalAddr().String()
}

func TestDNSResolver(t *testing.T) {
	addr := startDNSServer(t)
	r := NewDNSResolver(addr, time.Second)
	ctx := context.Background()

	addrs, err := r.Resolve(ctx, "shop.example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"192.0.2.10"}, addrs)

	addrs, err = r.Resolve(ctx, "v6.example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"2001:db8::1"}, addrs)

	_, err = r.Resolve(ctx, "missing.example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NXDOMAIN")

	_, err = r.Resolve(ctx, "empty.example.com")
	assert.ErrorIs(t, err, ErrNoAddresses)
}
