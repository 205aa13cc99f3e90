package models

import (
	"fmt"
	"net/netip"
	"slices"
	"strings"
	"time"
)

// TimeWindow limits a grant to certain hours of certain days.
// Hours are [StartHour, EndHour) in the server's location; EndHour <= StartHour wraps midnight.
type TimeWindow struct {
	StartHour int            `json:"startHour" bson:"startHour"`
	EndHour   int            `json:"endHour" bson:"endHour"`
	Days      []time.Weekday `json:"days,omitempty" bson:"days,omitempty"`
}

type Restrictions struct {
	AllowedContractTypes []string    `json:"allowedContractTypes,omitempty" bson:"allowedContractTypes,omitempty"`
	AllowedPhases        []string    `json:"allowedPhases,omitempty" bson:"allowedPhases,omitempty"`
	MaxAmount            *float64    `json:"maxAmount,omitempty" bson:"maxAmount,omitempty"`
	TimeWindow           *TimeWindow `json:"timeWindow,omitempty" bson:"timeWindow,omitempty"`
	AllowedIPs           []string    `json:"allowedIps,omitempty" bson:"allowedIps,omitempty"`
	DeniedIPs            []string    `json:"deniedIps,omitempty" bson:"deniedIps,omitempty"`
}

// RestrictionContext describes the circumstances of a request. Zero fields are not checked.
type RestrictionContext struct {
	ContractType string
	Phase        string
	Amount       *float64
	At           time.Time
	IP           string
}

// Validate checks that the restriction values are well formed
func (r Restrictions) Validate() error {
	if r.MaxAmount != nil && *r.MaxAmount < 0 {
		return fmt.Errorf("maxAmount must not be negative")
	}
	if w := r.TimeWindow; w != nil {
		if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 24 {
			return fmt.Errorf("timeWindow hours must be within 0-24")
		}
	}
	for _, entry := range append(slices.Clone(r.AllowedIPs), r.DeniedIPs...) {
		if _, err := parseIPMatcher(entry); err != nil {
			return fmt.Errorf("invalid IP entry %q: %w", entry, err)
		}
	}
	return nil
}

// Permits evaluates the restrictions against a request. The second value is the
// denial reason. Deny lists take precedence over allow lists.
func (r Restrictions) Permits(rc RestrictionContext) (bool, string) {
	if rc.ContractType != "" && len(r.AllowedContractTypes) > 0 && !containsFold(r.AllowedContractTypes, rc.ContractType) {
		return false, "Contract type not allowed"
	}
	if rc.Phase != "" && len(r.AllowedPhases) > 0 && !containsFold(r.AllowedPhases, rc.Phase) {
		return false, "Contract phase not allowed"
	}
	if rc.Amount != nil && r.MaxAmount != nil && *rc.Amount > *r.MaxAmount {
		return false, "Amount exceeds allowed maximum"
	}
	if !rc.At.IsZero() && r.TimeWindow != nil && !r.TimeWindow.contains(rc.At) {
		return false, "Outside allowed time window"
	}
	if rc.IP != "" {
		addr, err := netip.ParseAddr(rc.IP)
		if err != nil {
			return false, "Invalid client IP"
		}
		if matchesAny(r.DeniedIPs, addr) {
			return false, "IP address denied"
		}
		if len(r.AllowedIPs) > 0 && !matchesAny(r.AllowedIPs, addr) {
			return false, "IP address not allowed"
		}
	}
	return true, ""
}

func (w *TimeWindow) contains(at time.Time) bool {
	if len(w.Days) > 0 && !slices.Contains(w.Days, at.Weekday()) {
		return false
	}
	if w.StartHour == w.EndHour || (w.StartHour == 0 && w.EndHour == 24) {
		return true
	}
	h := at.Hour()
	if w.StartHour < w.EndHour {
		return h >= w.StartHour && h < w.EndHour
	}
	return h >= w.StartHour || h < w.EndHour
}

func (r Restrictions) clone() Restrictions {
	c := r
	c.AllowedContractTypes = slices.Clone(r.AllowedContractTypes)
	c.AllowedPhases = slices.Clone(r.AllowedPhases)
	c.AllowedIPs = slices.Clone(r.AllowedIPs)
	c.DeniedIPs = slices.Clone(r.DeniedIPs)
	if r.MaxAmount != nil {
		v := *r.MaxAmount
		c.MaxAmount = &v
	}
	if r.TimeWindow != nil {
		w := *r.TimeWindow
		w.Days = slices.Clone(r.TimeWindow.Days)
		c.TimeWindow = &w
	}
	return c
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}

// parseIPMatcher accepts a single address or a CIDR prefix
func parseIPMatcher(entry string) (netip.Prefix, error) {
	if strings.Contains(entry, "/") {
		return netip.ParsePrefix(entry)
	}
	addr, err := netip.ParseAddr(entry)
	if err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

func matchesAny(entries []string, addr netip.Addr) bool {
	for _, entry := range entries {
		prefix, err := parseIPMatcher(entry)
		if err != nil {
			continue
		}
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
