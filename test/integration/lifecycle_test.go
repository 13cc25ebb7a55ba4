// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

//go:build integration

package integration

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/tallybot/tallybot/internal/observability"
	"github.com/tallybot/tallybot/internal/plugin"
	"github.com/tallybot/tallybot/internal/plugins/chatrelay"
	"github.com/tallybot/tallybot/internal/plugins/heartbeat"
)

// notePlugin records its hook invocations into a shared slice.
type notePlugin struct {
	name  string
	notes *[]string
}

func (p *notePlugin) note(hook string) {
	*p.notes = append(*p.notes, hook+":"+p.name)
}

func (p *notePlugin) OnLoad(_ context.Context) error    { p.note("load"); return nil }
func (p *notePlugin) OnEnable(_ context.Context) error  { p.note("enable"); return nil }
func (p *notePlugin) OnDisable(_ context.Context) error { p.note("disable"); return nil }
func (p *notePlugin) OnUnload(_ context.Context) error  { p.note("unload"); return nil }

func noteDescriptor(name string, deps ...string) plugin.Descriptor {
	return plugin.Descriptor{
		Name:      name,
		ModuleID:  "it." + name,
		Version:   "1.0.0",
		DependsOn: deps,
	}
}

var _ = Describe("Plugin lifecycle", func() {
	var (
		ctx    context.Context
		logger *slog.Logger
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	})

	Describe("full startup and shutdown with built-in plugins", func() {
		var (
			gateway net.Listener
			obs     *observability.Server
			host    *plugin.Host
		)

		BeforeEach(func() {
			var err error
			gateway, err = net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())
			go func() {
				for {
					conn, acceptErr := gateway.Accept()
					if acceptErr != nil {
						return
					}
					go func(c net.Conn) {
						defer c.Close()
						_, _ = c.Read(make([]byte, 1))
					}(conn)
				}
			}()

			reg := plugin.NewRegistry()
			descs := []plugin.Descriptor{heartbeat.Descriptor(), chatrelay.Descriptor()}

			obs = observability.NewServer("127.0.0.1:0", func() bool {
				return host != nil && host.Ready()
			})
			metrics := plugin.NewMetrics(obs.Registry())

			host, err = plugin.NewHost(reg, descs,
				plugin.WithLogger(logger),
				plugin.WithMetrics(metrics),
			)
			Expect(err).NotTo(HaveOccurred())

			Expect(heartbeat.Register(reg, logger, 10*time.Millisecond)).To(Succeed())
			relayCfg := chatrelay.Config{
				Addr:        gateway.Addr().String(),
				DialTimeout: time.Second,
			}
			Expect(chatrelay.Register(reg, host, relayCfg, logger)).To(Succeed())

			_, err = obs.Start()
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			Expect(obs.Stop(stopCtx)).To(Succeed())
			Expect(gateway.Close()).To(Succeed())
		})

		readiness := func() int {
			resp, err := http.Get("http://" + obs.Addr() + "/healthz/readiness")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			_, _ = io.ReadAll(resp.Body)
			return resp.StatusCode
		}

		It("reaches readiness only after every plugin is enabled", func() {
			Expect(readiness()).To(Equal(http.StatusServiceUnavailable))

			Expect(host.LoadAll(ctx)).To(Succeed())
			Expect(readiness()).To(Equal(http.StatusServiceUnavailable))

			Expect(host.EnableAll(ctx)).To(Succeed())
			Eventually(readiness).Should(Equal(http.StatusOK))

			snap := host.Snapshot()
			Expect(snap.Enabled).To(ConsistOf("heartbeat", "chatrelay"))

			host.Shutdown(ctx)
			Eventually(readiness).Should(Equal(http.StatusServiceUnavailable))
		})

		It("exposes the chat connection as a host service while enabled", func() {
			Expect(host.LoadAll(ctx)).To(Succeed())
			Expect(host.EnableAll(ctx)).To(Succeed())

			svc, ok := host.Service(chatrelay.Descriptor().ModuleID, chatrelay.ServiceConn)
			Expect(ok).To(BeTrue())
			Expect(svc).To(BeAssignableToTypeOf(&net.TCPConn{}))

			host.Shutdown(ctx)
			_, ok = host.Service(chatrelay.Descriptor().ModuleID, chatrelay.ServiceConn)
			Expect(ok).To(BeFalse())
		})

		It("reports plugin status through the metrics endpoint", func() {
			Expect(host.LoadAll(ctx)).To(Succeed())
			Expect(host.EnableAll(ctx)).To(Succeed())

			resp, err := http.Get("http://" + obs.Addr() + "/metrics")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())

			Expect(string(body)).To(ContainSubstring(`tallybot_plugin_status{module="tallybot.heartbeat"} 3`))
			Expect(string(body)).To(ContainSubstring(`tallybot_plugin_status{module="tallybot.chatrelay"} 3`))

			host.Shutdown(ctx)
		})

		It("replaces the chat connection on reload", func() {
			Expect(host.LoadAll(ctx)).To(Succeed())
			Expect(host.EnableAll(ctx)).To(Succeed())

			before, err := host.GetRuntime("chatrelay")
			Expect(err).NotTo(HaveOccurred())
			idBefore := before.InstanceID()

			Expect(host.Reload(ctx, "chatrelay", false)).To(Succeed())

			after, err := host.GetRuntime("chatrelay")
			Expect(err).NotTo(HaveOccurred())
			Expect(after.Status()).To(Equal(plugin.StatusEnabled))
			Expect(after.InstanceID()).NotTo(Equal(idBefore))

			host.Shutdown(ctx)
		})
	})

	Describe("dependency chains", func() {
		It("starts and stops a three-plugin chain in dependency order", func() {
			var notes []string
			reg := plugin.NewRegistry()
			descs := []plugin.Descriptor{
				noteDescriptor("ledger"),
				noteDescriptor("accounts", "it.ledger"),
				noteDescriptor("sheet", "it.accounts"),
			}
			for _, d := range descs {
				d := d
				Expect(reg.Register(d.ModuleID, func() (plugin.Plugin, error) {
					return &notePlugin{name: d.Name, notes: &notes}, nil
				})).To(Succeed())
			}

			host, err := plugin.NewHost(reg, descs, plugin.WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())

			Expect(host.LoadAll(ctx)).To(Succeed())
			Expect(host.EnableAll(ctx)).To(Succeed())
			host.Shutdown(ctx)

			Expect(notes).To(Equal([]string{
				"load:ledger", "load:accounts", "load:sheet",
				"enable:ledger", "enable:accounts", "enable:sheet",
				"disable:sheet", "disable:accounts", "disable:ledger",
				"unload:sheet", "unload:accounts", "unload:ledger",
			}))
		})

		It("keeps a plugin with a missing dependency out of the run", func() {
			var notes []string
			reg := plugin.NewRegistry()
			descs := []plugin.Descriptor{
				noteDescriptor("ledger"),
				noteDescriptor("sheet", "it.ghost"),
				noteDescriptor("report", "it.sheet"),
			}
			for _, d := range descs {
				d := d
				Expect(reg.Register(d.ModuleID, func() (plugin.Plugin, error) {
					return &notePlugin{name: d.Name, notes: &notes}, nil
				})).To(Succeed())
			}

			host, err := plugin.NewHost(reg, descs, plugin.WithLogger(logger))
			Expect(err).NotTo(HaveOccurred())

			Expect(host.LoadAll(ctx)).To(Succeed())
			Expect(host.EnableAll(ctx)).To(Succeed())

			// The cascade marks report missing because sheet is missing.
			sheet, err := host.GetRuntime("sheet")
			Expect(err).NotTo(HaveOccurred())
			Expect(sheet.Status()).To(Equal(plugin.StatusMissingDependencies))
			report, err := host.GetRuntime("report")
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Status()).To(Equal(plugin.StatusMissingDependencies))

			Expect(notes).To(Equal([]string{"load:ledger", "enable:ledger"}))

			host.Shutdown(ctx)
			Expect(notes).To(Equal([]string{
				"load:ledger", "enable:ledger",
				"disable:ledger", "unload:ledger",
			}))
		})
	})
})
