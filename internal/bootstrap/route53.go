package bootstrap

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"chordring/internal/config"
	"chordring/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/route53"
	"github.com/aws/aws-sdk-go-v2/service/route53/types"
)

// Route53Bootstrap discovers ring peers by scanning a hosted zone for SRV
// records under domainSuffix, and publishes/withdraws this node's own SRV
// record on join/leave.
type Route53Bootstrap struct {
	client       *route53.Client
	hostedZoneID string
	domainSuffix string
	ttl          int64
}

// NewRoute53Bootstrap loads the default AWS config (environment, shared
// config file, or instance role) and builds a Route53 client from it.
func NewRoute53Bootstrap(cfg config.RegisterConfig) (*Route53Bootstrap, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return &Route53Bootstrap{
		client:       route53.NewFromConfig(awsCfg),
		hostedZoneID: cfg.HostedZoneID,
		domainSuffix: strings.TrimSuffix(cfg.DomainSuffix, "."),
		ttl:          cfg.TTL,
	}, nil
}

// Discover scans every SRV record in the hosted zone under domainSuffix
// and resolves each target to a "host:port" address.
func (r *Route53Bootstrap) Discover(ctx context.Context) ([]string, error) {
	var endpoints []string
	input := &route53.ListResourceRecordSetsInput{
		HostedZoneId: aws.String(r.hostedZoneID),
	}
	paginator := route53.NewListResourceRecordSetsPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list records: %w", err)
		}
		for _, rrset := range page.ResourceRecordSets {
			if rrset.Type != types.RRTypeSrv {
				continue
			}
			if !strings.HasSuffix(strings.TrimSuffix(*rrset.Name, "."), r.domainSuffix) {
				continue
			}
			for _, rr := range rrset.ResourceRecords {
				var prio, weight, port int
				var target string
				if _, err := fmt.Sscanf(*rr.Value, "%d %d %d %s", &prio, &weight, &port, &target); err != nil {
					continue
				}
				target = strings.TrimSuffix(target, ".")
				ips, err := net.LookupHost(target)
				if err != nil {
					continue
				}
				for _, ip := range ips {
					endpoints = append(endpoints, fmt.Sprintf("%s:%d", ip, port))
				}
			}
		}
	}
	return endpoints, nil
}

// Register upserts an SRV record for node under domainSuffix, keyed by
// its ring identifier in hex.
func (r *Route53Bootstrap) Register(ctx context.Context, node *domain.Node) error {
	return r.change(ctx, node, types.ChangeActionUpsert)
}

// Deregister removes the SRV record Register created for node.
func (r *Route53Bootstrap) Deregister(ctx context.Context, node *domain.Node) error {
	return r.change(ctx, node, types.ChangeActionDelete)
}

func (r *Route53Bootstrap) change(ctx context.Context, node *domain.Node, action types.ChangeAction) error {
	recordName := fmt.Sprintf("%s.%s.", node.ID.Hex(), r.domainSuffix)
	host, port, err := net.SplitHostPort(node.Addr)
	if err != nil {
		return err
	}
	input := &route53.ChangeResourceRecordSetsInput{
		HostedZoneId: aws.String(r.hostedZoneID),
		ChangeBatch: &types.ChangeBatch{
			Changes: []types.Change{
				{
					Action: action,
					ResourceRecordSet: &types.ResourceRecordSet{
						Name: aws.String(recordName),
						Type: types.RRTypeSrv,
						TTL:  aws.Int64(r.ttl),
						ResourceRecords: []types.ResourceRecord{
							{
								// priority weight port target, priority/weight unused here
								Value: aws.String(fmt.Sprintf("0 0 %s %s.", port, host)),
							},
						},
					},
				},
			},
		},
	}
	_, err = r.client.ChangeResourceRecordSets(ctx, input)
	return err
}

var _ Bootstrap = (*Route53Bootstrap)(nil)
