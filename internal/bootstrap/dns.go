package bootstrap

import (
	"context"
	"fmt"
	"net"

	"chordring/internal/config"
	"chordring/internal/domain"
	"chordring/internal/logger"
)

// dnsService/dnsProto name the SRV record a ring advertises itself under:
// "_chord._tcp.<dnsName>".
const (
	dnsService = "chord"
	dnsProto   = "tcp"
)

// DNSBootstrap discovers peers by resolving a DNS name, either an SRV
// record naming one or more ring members or a plain A/AAAA record
// carrying the configured port for all of them. Has nothing to register:
// publishing the SRV record itself is out of band (a zone file, or the
// Route53 backend below).
type DNSBootstrap struct {
	cfg config.BootstrapConfig
	lgr logger.Logger
}

func NewDNSBootstrap(cfg config.BootstrapConfig, lgr logger.Logger) *DNSBootstrap {
	if lgr == nil {
		lgr = &logger.NopLogger{}
	}
	return &DNSBootstrap{cfg: cfg, lgr: lgr}
}

// Discover resolves the configured name. On lookup failure or an empty
// answer it returns an empty list rather than an error, since an
// unresolvable bootstrap name just means no peers were found this round.
func (d *DNSBootstrap) Discover(ctx context.Context) ([]string, error) {
	if d.cfg.SRV {
		return d.discoverSRV(ctx)
	}
	return d.discoverHost(ctx)
}

func (d *DNSBootstrap) discoverSRV(ctx context.Context) ([]string, error) {
	var resolver net.Resolver
	_, srvs, err := resolver.LookupSRV(ctx, dnsService, dnsProto, d.cfg.DNSName)
	if err != nil {
		d.lgr.Warn("SRV lookup failed", logger.F("err", err), logger.F("name", d.cfg.DNSName))
		return []string{}, nil
	}

	var out []string
	for _, srv := range srvs {
		target := srv.Target
		ips, err := resolver.LookupHost(ctx, target)
		if err != nil {
			d.lgr.Warn("SRV target lookup failed", logger.F("target", target), logger.F("err", err))
			continue
		}
		for _, ip := range ips {
			out = append(out, joinHostPort(ip, int(srv.Port)))
		}
	}
	if len(out) == 0 {
		d.lgr.Warn("SRV lookup returned no addresses", logger.F("name", d.cfg.DNSName))
	}
	return out, nil
}

func (d *DNSBootstrap) discoverHost(ctx context.Context) ([]string, error) {
	var resolver net.Resolver
	ips, err := resolver.LookupHost(ctx, d.cfg.DNSName)
	if err != nil {
		d.lgr.Warn("host lookup failed", logger.F("err", err), logger.F("name", d.cfg.DNSName))
		return []string{}, nil
	}
	out := make([]string, 0, len(ips))
	for _, ip := range ips {
		out = append(out, joinHostPort(ip, d.cfg.Port))
	}
	if len(out) == 0 {
		d.lgr.Warn("host lookup returned no addresses", logger.F("name", d.cfg.DNSName))
	}
	return out, nil
}

func joinHostPort(ip string, port int) string {
	return net.JoinHostPort(ip, fmt.Sprint(port))
}

func (d *DNSBootstrap) Register(ctx context.Context, node *domain.Node) error   { return nil }
func (d *DNSBootstrap) Deregister(ctx context.Context, node *domain.Node) error { return nil }

var _ Bootstrap = (*DNSBootstrap)(nil)
