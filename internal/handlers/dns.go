// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

const (
	dnsProbeName    = "example.com."
	dnsProbeTimeout = 2 * time.Second
)

// DNSProber measures the round trip of one query against a resolver.
type DNSProber interface {
	Probe(ctx context.Context, server string) (time.Duration, error)
}

// DNSClient probes resolvers with an A query over UDP.
type DNSClient struct {
	client *dns.Client
	name   string
}

// NewDNSClient returns a prober with the given per-query timeout.
func NewDNSClient(timeout time.Duration) *DNSClient {
	if timeout <= 0 {
		timeout = dnsProbeTimeout
	}
	return &DNSClient{
		client: &dns.Client{Timeout: timeout},
		name:   dnsProbeName,
	}
}

func (c *DNSClient) Probe(ctx context.Context, server string) (time.Duration, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(c.name, dns.TypeA)
	msg.RecursionDesired = true
	resp, rtt, err := c.client.ExchangeContext(ctx, msg, resolverAddr(server))
	if err != nil {
		return 0, err
	}
	if resp.Rcode != dns.RcodeSuccess {
		return rtt, fmt.Errorf("%s answered %s", server, dns.RcodeToString[resp.Rcode])
	}
	return rtt, nil
}

// resolverAddr adds the DNS port to a bare resolv.conf address.
func resolverAddr(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(server, "53")
}
