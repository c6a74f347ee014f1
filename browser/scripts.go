package browser

// In-page scripts. Each is a function expression evaluated with page.Eval.

// snapshotJS serialises the document with every open shadow root as a
// declarative <template shadowrootmode> child of its host.
const snapshotJS = `() => {
	const roots = [];
	const collect = (root) => {
		for (const el of root.querySelectorAll('*')) {
			if (el.shadowRoot) {
				roots.push(el.shadowRoot);
				collect(el.shadowRoot);
			}
		}
	};
	collect(document);

	const de = document.documentElement;
	const attrs = Array.from(de.attributes)
		.map(a => ' ' + a.name + '="' + a.value.replace(/&/g, '&amp;').replace(/"/g, '&quot;') + '"')
		.join('');
	const inner = typeof de.getHTML === 'function'
		? de.getHTML({ serializableShadowRoots: true, shadowRoots: roots })
		: de.innerHTML;
	return '<!DOCTYPE html><html' + attrs + '>' + inner + '</html>';
}`

// waitForJS resolves true once selector matches, false after timeoutMs.
// The observer is disconnected on both paths.
const waitForJS = `(selector, timeoutMs) => new Promise((resolve) => {
	if (document.querySelector(selector)) {
		resolve(true);
		return;
	}
	let timer = null;
	const observer = new MutationObserver(() => {
		if (document.querySelector(selector)) {
			observer.disconnect();
			clearTimeout(timer);
			resolve(true);
		}
	});
	observer.observe(document.documentElement, { childList: true, subtree: true });
	timer = setTimeout(() => {
		observer.disconnect();
		resolve(false);
	}, timeoutMs);
})`

// observeJS reports the address to the exposed binding after every
// mutation batch that follows an address change.
const observeJS = `(binding) => {
	if (window.__ingestorObserving) return;
	window.__ingestorObserving = true;
	let last = null;
	const report = () => {
		if (location.href === last) return;
		last = location.href;
		try { window[binding](last); } catch (e) {}
	};
	new MutationObserver(report).observe(document, { subtree: true, childList: true });
	report();
}`

// toastJS shows a transient message in the bottom right corner.
const toastJS = `(text, isError, visibleMs, transitionMs) => {
	const toast = document.createElement('div');
	toast.textContent = text;
	Object.assign(toast.style, {
		position: 'fixed',
		bottom: '20px',
		right: '20px',
		padding: '12px 24px',
		borderRadius: '8px',
		color: '#fff',
		fontFamily: 'system-ui, -apple-system, sans-serif',
		fontSize: '14px',
		fontWeight: '500',
		zIndex: '2147483647',
		boxShadow: '0 4px 12px rgba(0,0,0,0.15)',
		opacity: '0',
		transform: 'translateY(10px)',
		transition: 'opacity ' + transitionMs + 'ms ease-in-out, transform ' + transitionMs + 'ms ease-out',
		backgroundColor: isError ? '#ef4444' : '#22c55e',
	});
	(document.body || document.documentElement).appendChild(toast);
	setTimeout(() => {
		toast.style.opacity = '1';
		toast.style.transform = 'translateY(0)';
	}, 10);
	setTimeout(() => {
		toast.style.opacity = '0';
		setTimeout(() => toast.remove(), transitionMs);
	}, visibleMs);
}`
