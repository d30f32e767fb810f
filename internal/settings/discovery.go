package settings

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/grandcat/zeroconf"
)

// LocalInstance is a receiver discovered on the LAN via mDNS.
type LocalInstance struct {
	Name       string            `json:"name"`
	Host       string            `json:"host"`
	Port       int               `json:"port"`
	TLS        bool              `json:"tls"`
	TxtRecords map[string]string `json:"txtRecords,omitempty"`
}

// SavedInstance is a user-saved receiver connection, persisted alongside
// the SessionConfig.
type SavedInstance struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	TLS      bool   `json:"tls"`
	Password string `json:"password,omitempty"`
}

// Discovery browses the LAN for `_ka9qradio._tcp` mDNS services advertised
// by receiver daemons.
type Discovery struct {
	mu        sync.RWMutex
	instances map[string]LocalInstance

	ctx    context.Context
	cancel context.CancelFunc
}

// NewDiscovery creates a Discovery manager. Call Start to begin browsing.
func NewDiscovery() *Discovery {
	ctx, cancel := context.WithCancel(context.Background())
	return &Discovery{instances: make(map[string]LocalInstance), ctx: ctx, cancel: cancel}
}

// Start begins background mDNS browsing until Stop is called.
func (d *Discovery) Start() error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("settings: mdns resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		for entry := range entries {
			d.handleEntry(entry)
		}
	}()

	go func() {
		if err := resolver.Browse(d.ctx, "_ka9qradio._tcp", "local.", entries); err != nil {
			log.Printf("settings: mdns browse: %v", err)
		}
	}()

	return nil
}

func (d *Discovery) handleEntry(entry *zeroconf.ServiceEntry) {
	if len(entry.AddrIPv4) == 0 {
		return
	}

	txt := make(map[string]string)
	for _, kv := range entry.Text {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				txt[kv[:i]] = kv[i+1:]
				break
			}
		}
	}

	inst := LocalInstance{
		Name:       entry.Instance,
		Host:       entry.AddrIPv4[0].String(),
		Port:       entry.Port,
		TLS:        txt["tls"] == "true",
		TxtRecords: txt,
	}

	d.mu.Lock()
	d.instances[inst.Name] = inst
	d.mu.Unlock()
}

// Instances returns a snapshot of the currently known LAN instances.
func (d *Discovery) Instances() []LocalInstance {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]LocalInstance, 0, len(d.instances))
	for _, inst := range d.instances {
		out = append(out, inst)
	}
	return out
}

// Stop cancels background browsing.
func (d *Discovery) Stop() { d.cancel() }
