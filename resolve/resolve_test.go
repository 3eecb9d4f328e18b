package resolve

import "testing"

func TestServersForWellKnown(t *testing.T) {
	servers, err := serversFor("cloudflare")
	if err != nil {
		t.Fatal(err)
	}
	if len(servers) != 2 || servers[0] != "1.1.1.1:53" {
		t.Fatalf("unexpected servers %v", servers)
	}
}

func TestServersForCommaList(t *testing.T) {
	servers, err := serversFor("10.0.0.1, 10.0.0.2:5353")
	if err != nil {
		t.Fatal(err)
	}
	if len(servers) != 2 || servers[0] != "10.0.0.1:53" || servers[1] != "10.0.0.2:5353" {
		t.Fatalf("unexpected servers %v", servers)
	}
}

func TestResolveIPv4LiteralShortCircuits(t *testing.T) {
	r := &Resolver{}
	ips, err := r.ResolveIPv4("1.2.3.4")
	if err != nil {
		t.Fatal(err)
	}
	if len(ips) != 1 || ips[0].String() != "1.2.3.4" {
		t.Fatalf("unexpected ips %v", ips)
	}
}
