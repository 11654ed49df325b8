package browser

// Evasion scripts ported from the original automation profile. Injected after
// page load; CDP-level injection is skipped in headless mode because the extra
// Page.addScriptToEvaluateOnNewDocument round-trip is itself a detection
// signal on some challenge walls.

const stealthJS = `() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });

	if (!window.chrome) { window.chrome = {}; }
	if (!window.chrome.runtime) { window.chrome.runtime = {}; }

	const getParameter = WebGLRenderingContext.prototype.getParameter;
	WebGLRenderingContext.prototype.getParameter = function(parameter) {
		if (parameter === 37445) return 'Intel Inc.';
		if (parameter === 37446) return 'Intel Iris OpenGL Engine';
		return getParameter.call(this, parameter);
	};
	if (typeof WebGL2RenderingContext !== 'undefined') {
		const getParameter2 = WebGL2RenderingContext.prototype.getParameter;
		WebGL2RenderingContext.prototype.getParameter = function(parameter) {
			if (parameter === 37445) return 'Intel Inc.';
			if (parameter === 37446) return 'Intel Iris OpenGL Engine';
			return getParameter2.call(this, parameter);
		};
	}

	Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
	Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });

	const originalQuery = window.navigator.permissions.query;
	window.navigator.permissions.query = (parameters) => (
		parameters.name === 'notifications'
			? Promise.resolve({ state: Notification.permission })
			: originalQuery(parameters)
	);

	delete navigator.__proto__.webdriver;
	return true;
}`

const navigatorProfileJS = `() => {
	Object.defineProperty(navigator, 'platform', { get: () => 'Linux x86_64' });
	Object.defineProperty(navigator, 'hardwareConcurrency', { get: () => 8 });
	Object.defineProperty(navigator, 'deviceMemory', { get: () => 8 });
	Object.defineProperty(navigator, 'maxTouchPoints', { get: () => 0 });

	Object.defineProperty(screen, 'width', { get: () => 1920 });
	Object.defineProperty(screen, 'height', { get: () => 1080 });
	Object.defineProperty(screen, 'availWidth', { get: () => 1920 });
	Object.defineProperty(screen, 'availHeight', { get: () => 1080 });
	return true;
}`

// clipboardPermissionJS makes navigator.permissions report clipboard access as
// granted in headless mode, where Browser.grantPermissions alone is not always
// honored by the renderer.
const clipboardPermissionJS = `() => {
	const original = navigator.permissions.query.bind(navigator.permissions);
	navigator.permissions.query = (parameters) => {
		if (parameters.name === 'clipboard-read' || parameters.name === 'clipboard-write') {
			return Promise.resolve({ state: 'granted' });
		}
		return original(parameters);
	};
	return true;
}`
