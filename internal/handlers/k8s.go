// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package handlers

import (
	"context"
	"time"

	"github.com/shayne/vpstui/internal/hostcmd"
	"github.com/shayne/vpstui/internal/report"
)

const kubectlTimeout = 10 * time.Second

var k3sGuide = guide{
	intro: "K3s 是一个轻量级的 Kubernetes 发行版，适合边缘计算、IoT、CI/CD",
	steps: []guideStep{
		{title: "快速安装", commands: []string{
			"curl -sfL https://get.k3s.io | sh -",
			"curl -sfL https://get.k3s.io | INSTALL_K3S_EXEC=\"--disable traefik\" sh -",
		}},
		{title: "基本配置", commands: []string{
			"mkdir ~/.kube",
			"cp /etc/rancher/k3s/k3s.yaml ~/.kube/config",
			"chmod 600 ~/.kube/config",
		}},
		{title: "常用命令", commands: []string{
			"kubectl get nodes",
			"kubectl get pods --all-namespaces",
			"systemctl status k3s",
			"journalctl -u k3s -f",
		}},
		{title: "集群管理", commands: []string{
			"cat /var/lib/rancher/k3s/server/node-token",
			"curl -sfL https://get.k3s.io | K3S_URL=https://master-ip:6443 K3S_TOKEN=xxx sh -",
		}},
		{title: "卸载 K3s", commands: []string{
			"/usr/local/bin/k3s-uninstall.sh",
			"/usr/local/bin/k3s-agent-uninstall.sh",
		}},
	},
	tip: "K3s 默认包含了 containerd、Flannel、CoreDNS、Traefik 等组件。",
}

var k8sGuide = guide{
	intro: "Kubernetes 是容器编排的行业标准",
	steps: []guideStep{
		{title: "前置要求", commands: []string{
			"swapoff -a",
			"sed -i '/ swap / s/^/#/' /etc/fstab",
			"modprobe br_netfilter",
			"sysctl --system",
		}},
		{title: "安装容器运行时 (containerd)", commands: []string{
			"apt-get install -y containerd",
			"containerd config default | tee /etc/containerd/config.toml",
			"systemctl restart containerd",
		}},
		{title: "安装 kubeadm, kubelet, kubectl", commands: []string{
			"apt-get install -y kubelet kubeadm kubectl",
			"apt-mark hold kubelet kubeadm kubectl",
		}},
		{title: "初始化 Master 节点", commands: []string{
			"kubeadm init --pod-network-cidr=10.244.0.0/16",
			"cp -i /etc/kubernetes/admin.conf $HOME/.kube/config",
		}},
		{title: "安装网络插件", commands: []string{
			"kubectl apply -f https://raw.githubusercontent.com/flannel-io/flannel/master/Documentation/kube-flannel.yml",
		}},
		{title: "添加 Worker 节点", commands: []string{
			"kubeadm token create --print-join-command",
		}},
	},
	tip: "生产环境建议使用高可用部署，至少3个Master节点。",
}

// clusterTool is a binary whose presence and version are reported.
type clusterTool struct {
	label   string
	binary  string
	version []string
}

// inspectCluster reports the given tools and, when kubectl is usable, the
// node list. It returns whether any tool was found.
func inspectCluster(ctx context.Context, env Env, rep *report.Report, tools []clusterTool, kubectl hostcmd.Spec) bool {
	found := false
	sec := rep.Section("组件")
	for _, tool := range tools {
		if !installed(env, tool.binary) {
			sec.Row(tool.label, "未安装")
			continue
		}
		found = true
		c := run(ctx, env, rep, command(tool.binary, tool.version...))
		if !c.ok() {
			sec.Row(tool.label, "已安装")
			continue
		}
		sec.Row(tool.label, firstLine(c.res.Stdout))
	}
	if !found || !installed(env, kubectl.Name) {
		return found
	}
	kubectl.Timeout = kubectlTimeout
	nodes := run(ctx, env, rep, kubectl)
	if out := nodes.stdout(); out != "" {
		rep.Section("节点").Text(out)
	} else {
		rep.Note("无法连接集群，请检查 kubeconfig 或服务状态。")
	}
	return found
}

// K3s reports a local k3s installation.
type K3s struct{}

func (K3s) Item() MenuItem {
	return MenuItem{
		Number:      "8",
		Key:         "k3s",
		Label:       "k3s",
		Description: "部署轻量级Kubernetes",
	}
}

func (K3s) Invoke(ctx context.Context, env Env) report.Report {
	rep := report.New("K3s 轻量级 Kubernetes")
	tools := []clusterTool{
		{label: "k3s", binary: "k3s", version: []string{"--version"}},
	}
	// k3s bundles kubectl as a subcommand.
	kubectl := command("k3s", "kubectl", "get", "nodes", "-o", "wide")
	if !inspectCluster(ctx, env, &rep, tools, kubectl) {
		k3sGuide.simulate(&rep)
		return rep
	}
	k3sGuide.addTo(&rep)
	return rep
}

// K8s reports a kubeadm style Kubernetes installation.
type K8s struct{}

func (K8s) Item() MenuItem {
	return MenuItem{
		Number:      "9",
		Key:         "k8s",
		Label:       "k8s",
		Description: "部署完整版Kubernetes",
		Aliases:     []string{"kubernetes", "kubeadm"},
	}
}

func (K8s) Invoke(ctx context.Context, env Env) report.Report {
	rep := report.New("Kubernetes (K8s)")
	tools := []clusterTool{
		{label: "kubeadm", binary: "kubeadm", version: []string{"version", "-o", "short"}},
		{label: "kubectl", binary: "kubectl", version: []string{"version", "--client"}},
		{label: "kubelet", binary: "kubelet", version: []string{"--version"}},
	}
	kubectl := command("kubectl", "get", "nodes", "-o", "wide")
	if !inspectCluster(ctx, env, &rep, tools, kubectl) {
		k8sGuide.simulate(&rep)
		return rep
	}
	k8sGuide.addTo(&rep)
	return rep
}
