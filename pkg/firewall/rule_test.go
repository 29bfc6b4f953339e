package firewall

import (
	"strings"
	"testing"
)

// TestRuleBuilderBuild tests rule rendering from chained setters
func TestRuleBuilderBuild(t *testing.T) {
	tests := []struct {
		name  string
		build func() *RuleBuilder
		want  string
	}{
		{
			name: "full rule",
			build: func() *RuleBuilder {
				return NewRuleBuilder().
					Source("10.0.0.0/24").
					Destination("10.0.1.5").
					Protocol("tcp").
					SourcePort(1024).
					DestinationPort(80).
					Jump("ACCEPT")
			},
			want: "-s 10.0.0.0/24 -d 10.0.1.5 -p tcp --sport 1024 --dport 80 -j ACCEPT",
		},
		{
			name: "empty source omitted",
			build: func() *RuleBuilder {
				return NewRuleBuilder().Source("").Protocol("tcp")
			},
			want: "-p tcp",
		},
		{
			name: "zero ports omitted",
			build: func() *RuleBuilder {
				return NewRuleBuilder().SourcePort(0).DestinationPort(0).Jump("DROP")
			},
			want: "-j DROP",
		},
		{
			name: "empty builder",
			build: func() *RuleBuilder {
				return NewRuleBuilder()
			},
			want: "",
		},
		{
			name: "dnat target",
			build: func() *RuleBuilder {
				return NewRuleBuilder().
					Protocol("udp").
					DestinationPort(53).
					Jump("DNAT").
					ToDestination("10.88.0.5:5353")
			},
			want: "-p udp --dport 53 -j DNAT --to-destination 10.88.0.5:5353",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.build().Build()
			if got != tt.want {
				t.Errorf("Build() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestRuleBuilderOmission verifies empty setters leave no trace in the rule
func TestRuleBuilderOmission(t *testing.T) {
	rule := NewRuleBuilder().Source("").Protocol("tcp").Build()

	if !strings.Contains(rule, "-p tcp") {
		t.Errorf("Build() = %q, want it to contain %q", rule, "-p tcp")
	}
	if strings.Contains(rule, "-s") {
		t.Errorf("Build() = %q, must not contain %q", rule, "-s")
	}
}

// TestRuleBuilderReset tests builder reuse after Reset
func TestRuleBuilderReset(t *testing.T) {
	b := NewRuleBuilder().Source("192.168.0.0/16").Jump("DROP")
	if b.Build() == "" {
		t.Fatal("Build() empty before Reset")
	}

	b.Reset()
	if got := b.Build(); got != "" {
		t.Errorf("Build() after Reset = %q, want empty", got)
	}

	// Builder stays usable after reset
	if got := b.Protocol("udp").Build(); got != "-p udp" {
		t.Errorf("Build() after reuse = %q, want %q", got, "-p udp")
	}
}

// TestRuleBuilderArgsCopy verifies Args returns an independent copy
func TestRuleBuilderArgsCopy(t *testing.T) {
	b := NewRuleBuilder().Protocol("tcp")

	args := b.Args()
	args[0] = "mutated"

	if got := b.Build(); got != "-p tcp" {
		t.Errorf("Build() after mutating Args() copy = %q, want %q", got, "-p tcp")
	}
}
